package editor

// Document is the read-only surface a lesson is executed against.
type Document interface {
	ID() string
	Name() string
	Snapshot() Snapshot
	Subscribe(fn Listener) Subscription
	Valid() bool
}

// Editable is implemented by documents the engine may write to, either to seed a
// lesson's initial text or to replay scripted edits.
type Editable interface {
	Document
	SetText(text string) error
	Insert(at int, text string) error
	Delete(start, end int) error
	MoveCaret(offset int) error
	Select(start, end int) error
	Close()
}

type Listener func(Event)

type Subscription interface {
	Unsubscribe()
}
