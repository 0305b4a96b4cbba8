package course

import "fmt"

// StructuralError reports a malformed course or lesson definition. The offending
// entry is skipped; the rest of the load continues.
type StructuralError struct {
	Path     string
	CourseID string
	LessonID string
	Err      error
}

func (e *StructuralError) Error() string {
	switch {
	case e.LessonID != "":
		return fmt.Sprintf("lesson %s (%s): %v", e.LessonID, e.Path, e.Err)
	case e.CourseID != "":
		return fmt.Sprintf("course %s (%s): %v", e.CourseID, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
}

func (e *StructuralError) Unwrap() error { return e.Err }

// MissingArtifactError means a lesson's expected-result resource could not be read.
// The lesson cannot be opened until the resource is restored.
type MissingArtifactError struct {
	LessonID string
	Path     string
	Err      error
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("expected result for lesson %s not found at %s: %v", e.LessonID, e.Path, e.Err)
}

func (e *MissingArtifactError) Unwrap() error { return e.Err }
