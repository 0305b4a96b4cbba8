package ui

import (
	"errors"
	"fmt"

	"codedojo/internal/course"
	"codedojo/internal/lesson"
	"codedojo/internal/progress"
	"codedojo/internal/workspace"
)

// FriendlyError turns engine errors into a short sentence for the learner.
func FriendlyError(err error) string {
	var (
		envErr     *workspace.EnvironmentError
		openErr    *lesson.AlreadyOpenError
		missingErr *course.MissingArtifactError
		saveErr    *progress.SaveError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &envErr):
		switch envErr.Kind {
		case workspace.NoSdk:
			return "No SDK is configured for the learning project. Install one and try again."
		case workspace.OldSdk:
			return fmt.Sprintf("The installed SDK is too old (%s).", envErr.Detail)
		case workspace.InvalidSdk:
			return fmt.Sprintf("The configured SDK cannot be used (%s).", envErr.Detail)
		case workspace.NoModule:
			return "The learning project has no modules to put the lesson file in."
		}
		return envErr.Error()
	case errors.As(err, &openErr):
		return fmt.Sprintf("Lesson %s is already open.", openErr.LessonID)
	case errors.As(err, &missingErr):
		return fmt.Sprintf("Lesson %s cannot be opened: its expected result is missing.", missingErr.LessonID)
	case errors.Is(err, workspace.ErrAborted):
		return "Lesson not opened: learning project setup was cancelled."
	case errors.As(err, &saveErr):
		return "Progress could not be saved. It is kept for this session."
	default:
		return err.Error()
	}
}
