package checks

import "codedojo/internal/editor"

// Evaluator decides whether a document snapshot satisfies a step's predicate.
// Implementations must be pure: no I/O, no mutation of the snapshot.
type Evaluator interface {
	Evaluate(spec Spec, snap editor.Snapshot, artifact string) (Evaluation, error)
}
