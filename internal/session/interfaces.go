package session

import (
	"codedojo/internal/course"
	"codedojo/internal/editor"
	"codedojo/internal/evaluator"
	"codedojo/internal/workspace"
)

// DocumentProvider opens the document a lesson runs in.
type DocumentProvider interface {
	OpenOrCreateScratch(name string) (editor.Editable, error)
	OpenOrCreateProjectFile(project *workspace.Project, name string) (editor.Editable, error)
}

// Presenter is the learner-facing surface: step content plus progress and errors.
type Presenter interface {
	evaluator.Presenter
	RefreshProgress(courses []*course.Course)
	ReportError(err error)
}
