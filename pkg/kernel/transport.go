package kernel

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// Transport abstracts how the evaluator process is reached. The returned
// writer carries requests, the reader carries responses; closing the
// transport terminates the boundary connection and abandons pending work.
type Transport interface {
	// Start launches or connects to the evaluator and returns its
	// request/response streams.
	Start(ctx context.Context) (stdin io.WriteCloser, stdout io.ReadCloser, err error)
	// Close terminates the connection.
	Close() error
}

// ExecTransport runs the evaluator as a local subprocess and speaks the
// protocol over its stdio.
type ExecTransport struct {
	command []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewExecTransport creates a transport that spawns the given command.
func NewExecTransport(command []string) *ExecTransport {
	return &ExecTransport{command: command}
}

// Start launches the evaluator subprocess.
func (t *ExecTransport) Start(ctx context.Context) (io.WriteCloser, io.ReadCloser, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.command) == 0 {
		return nil, nil, fmt.Errorf("no evaluator command configured")
	}
	if t.cmd != nil {
		return nil, nil, fmt.Errorf("transport already started")
	}

	cmd := exec.CommandContext(ctx, t.command[0], t.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("failed to start evaluator: %w", err)
	}

	t.cmd = cmd
	return stdin, stdout, nil
}

// Close terminates the evaluator subprocess.
func (t *ExecTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	err := t.cmd.Process.Kill()
	// Reap the process so it does not linger as a zombie.
	_, _ = t.cmd.Process.Wait()
	t.cmd = nil
	return err
}
