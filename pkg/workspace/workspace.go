// Package workspace loads part definitions from CUE or YAML files into
// the object states the compiler consumes.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qutlas/designcore/pkg/compiler"
)

// Workspace is one part with its named object states.
type Workspace struct {
	Part    string                          `json:"part" yaml:"part" validate:"required"`
	Objects map[string]compiler.ObjectState `json:"objects" yaml:"objects" validate:"required,dive"`
}

// Loader parses workspace files. Unknown fields are tolerated so older
// and newer workspace files both load; the compiler degrades rather
// than rejects.
type Loader struct {
	ctx      *cue.Context
	validate *validator.Validate
}

// NewLoader creates a workspace loader.
func NewLoader() *Loader {
	return &Loader{
		ctx:      cuecontext.New(),
		validate: validator.New(),
	}
}

// Load reads a workspace from a .cue, .yaml, or .yml file.
func (l *Loader) Load(path string) (*Workspace, error) {
	var ws Workspace
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		if err := l.loadCUE(path, &ws); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := l.loadYAML(path, &ws); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported workspace format %q (want .cue, .yaml, or .yml)", ext)
	}

	if err := l.validate.Struct(&ws); err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", path, err)
	}
	return &ws, nil
}

func (l *Loader) loadCUE(path string, ws *Workspace) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read workspace: %w", err)
	}

	val := l.ctx.CompileBytes(content, cue.Filename(path))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to parse CUE workspace %s: %w", path, err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("workspace %s is not fully concrete: %w", path, err)
	}
	if err := val.Decode(ws); err != nil {
		return fmt.Errorf("failed to decode workspace %s: %w", path, err)
	}
	return nil
}

func (l *Loader) loadYAML(path string, ws *Workspace) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read workspace: %w", err)
	}
	if err := yaml.Unmarshal(content, ws); err != nil {
		return fmt.Errorf("failed to parse YAML workspace %s: %w", path, err)
	}
	return nil
}
