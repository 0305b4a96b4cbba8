package devtools

import "codedojo/internal/editor"

// Target is the running lesson a replay drives. Document returns the document the
// current session is bound to.
type Target interface {
	Document() (editor.Editable, bool)
	Current() (lessonID string, cursor int, ok bool)
	Passed(lessonID string) bool
}
