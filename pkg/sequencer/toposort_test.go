package sequencer

import "testing"

func op(id string, deps ...string) Operation {
	if deps == nil {
		deps = []string{}
	}
	return Operation{ID: id, Category: CategoryFeature, Operation: "ADD_HOLE", DependsOn: deps}
}

func position(t *testing.T, ops []Operation, id string) int {
	t.Helper()
	for i, o := range ops {
		if o.ID == id {
			return i
		}
	}
	t.Fatalf("operation %s missing from resolved order", id)
	return -1
}

func TestResolve_OrdersDependenciesFirst(t *testing.T) {
	ops := []Operation{
		op("c", "b"),
		op("a"),
		op("b", "a"),
	}

	ordered, issues := Resolve(ops)

	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(ordered) != 3 {
		t.Fatalf("expected 3 operations, got %d", len(ordered))
	}
	if !(position(t, ordered, "a") < position(t, ordered, "b") &&
		position(t, ordered, "b") < position(t, ordered, "c")) {
		t.Errorf("expected a before b before c, got %v", ordered)
	}
}

func TestResolve_Diamond(t *testing.T) {
	ops := []Operation{
		op("d", "b", "c"),
		op("b", "a"),
		op("c", "a"),
		op("a"),
	}

	ordered, issues := Resolve(ops)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	pa, pd := position(t, ordered, "a"), position(t, ordered, "d")
	if pa > position(t, ordered, "b") || pa > position(t, ordered, "c") {
		t.Errorf("a must precede both b and c")
	}
	if pd != len(ordered)-1 {
		t.Errorf("d must come last")
	}
}

func TestResolve_MissingDependency(t *testing.T) {
	ops := []Operation{
		op("a"),
		op("b", "ghost"),
	}

	ordered, issues := Resolve(ops)

	if len(ordered) != 2 {
		t.Errorf("operations with missing deps still appear in the order")
	}
	if len(issues) != 1 || issues[0].Kind != IssueMissingDependency {
		t.Fatalf("expected one missing_dependency issue, got %v", issues)
	}
	if issues[0].OperationID != "b" || issues[0].Dependency != "ghost" {
		t.Errorf("issue must name the operation and the missing id: %+v", issues[0])
	}
}

func TestResolve_SelfReference(t *testing.T) {
	ops := []Operation{op("a", "a")}

	ordered, issues := Resolve(ops)

	if len(ordered) != 1 {
		t.Errorf("self-referential operation still appears in the order")
	}
	if len(issues) != 1 || issues[0].Kind != IssueSelfReference {
		t.Fatalf("expected one self_reference issue, got %v", issues)
	}
}

func TestResolve_CycleReported(t *testing.T) {
	ops := []Operation{
		op("a", "b"),
		op("b", "a"),
	}

	ordered, issues := Resolve(ops)

	if len(ordered) != 2 {
		t.Errorf("cycle members still appear in the order exactly once")
	}
	found := false
	for _, issue := range issues {
		if issue.Kind == IssueCycle {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a cycle issue, got %v", issues)
	}
}

func TestResolve_Empty(t *testing.T) {
	ordered, issues := Resolve(nil)
	if len(ordered) != 0 || len(issues) != 0 {
		t.Errorf("resolving an empty list yields nothing")
	}
}
