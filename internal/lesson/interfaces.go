package lesson

import "time"

// Recorder receives lesson outcomes. The progress log implements it.
type Recorder interface {
	RecordStarted(lessonID string, ts time.Time)
	RecordOutcome(lessonID string, passed bool, ts time.Time)
}
