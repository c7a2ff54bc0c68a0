package sequencer

import "fmt"

const (
	markUnvisited = iota
	markInStack
	markDone
)

// Resolve orders an operation list into execution order by depth-first
// traversal over declared dependencies, so every operation appears after
// everything it depends on. Dependency problems (a missing dependency id,
// a self-reference, a cycle) are reported as structured issues and the
// offending edge is ignored; Resolve never fails and every input operation
// appears exactly once in the output.
func Resolve(ops []Operation) ([]Operation, []Issue) {
	index := make(map[string]int, len(ops))
	for i, op := range ops {
		index[op.ID] = i
	}

	marks := make([]int, len(ops))
	ordered := make([]Operation, 0, len(ops))
	issues := make([]Issue, 0)

	var visit func(i int)
	visit = func(i int) {
		marks[i] = markInStack
		op := ops[i]

		for _, dep := range op.DependsOn {
			if dep == op.ID {
				issues = append(issues, Issue{
					Kind:        IssueSelfReference,
					OperationID: op.ID,
					Dependency:  dep,
					Message:     fmt.Sprintf("operation %s depends on itself", op.ID),
				})
				continue
			}
			j, ok := index[dep]
			if !ok {
				issues = append(issues, Issue{
					Kind:        IssueMissingDependency,
					OperationID: op.ID,
					Dependency:  dep,
					Message:     fmt.Sprintf("operation %s depends on unknown operation %s", op.ID, dep),
				})
				continue
			}
			switch marks[j] {
			case markUnvisited:
				visit(j)
			case markInStack:
				issues = append(issues, Issue{
					Kind:        IssueCycle,
					OperationID: op.ID,
					Dependency:  dep,
					Message:     fmt.Sprintf("dependency cycle between %s and %s", op.ID, dep),
				})
			}
		}

		marks[i] = markDone
		ordered = append(ordered, op)
	}

	for i := range ops {
		if marks[i] == markUnvisited {
			visit(i)
		}
	}

	return ordered, issues
}
