package workspace

import (
	"context"

	"codedojo/internal/course"
)

type Validator interface {
	CheckEnvironment(p *Project, c *course.Course) error
}

// Provisioner makes sure a backing project exists for project-backed courses.
// closeTarget is the project currently in use, if any; it may be replaced.
type Provisioner interface {
	EnsureBackingProject(ctx context.Context, closeTarget *Project) (*Project, error)
}

// PathStore remembers where the backing project lives between runs.
type PathStore interface {
	WorkspacePath() string
	SetWorkspacePath(path string)
}
