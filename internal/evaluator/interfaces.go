package evaluator

import "codedojo/internal/checks"

// Presenter surfaces step content to the learner.
type Presenter interface {
	ShowMessage(lessonID string, markdown string)
	ShowHint(lessonID string, markdown string, eval checks.Evaluation)
}
