package course

import "context"

type Loader interface {
	LoadCourses(ctx context.Context, root string) ([]*Course, []*StructuralError, error)
}

// Artifacts resolves a lesson's expected-result resource.
type Artifacts interface {
	Load(l *Lesson) (string, error)
}
