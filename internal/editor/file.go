package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// FileDocument is a Buffer mirrored to a file on disk. Edits made through the
// document are written back; external writes picked up by Watch are loaded into the
// buffer and surface as TextChanged events.
type FileDocument struct {
	*Buffer
	path string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	pending atomic.Bool
}

// OpenFile loads path into a new document, creating the file (and its parent
// directory) with initial when it does not exist yet.
func OpenFile(path, initial string) (*FileDocument, error) {
	path = filepath.Clean(path)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create document dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
		data = []byte(initial)
	case err != nil:
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &FileDocument{
		Buffer: NewBuffer(filepath.Base(path), string(data)),
		path:   path,
	}, nil
}

func (d *FileDocument) Path() string { return d.path }

func (d *FileDocument) SetText(text string) error {
	if err := d.Buffer.SetText(text); err != nil {
		return err
	}
	return d.flush()
}

func (d *FileDocument) Insert(at int, text string) error {
	if err := d.Buffer.Insert(at, text); err != nil {
		return err
	}
	return d.flush()
}

func (d *FileDocument) Delete(start, end int) error {
	if err := d.Buffer.Delete(start, end); err != nil {
		return err
	}
	return d.flush()
}

// Reload reads the file and replaces the buffer text when the disk copy differs.
func (d *FileDocument) Reload() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return fmt.Errorf("reload document: %w", err)
	}
	if string(data) == d.Snapshot().Text {
		return nil
	}
	return d.replaceText(string(data))
}

// Watch starts an fsnotify watcher on the document's directory. Reloads are handed to
// post so they run on the caller's control goroutine; a nil post reloads inline on the
// watcher goroutine. Bursts of writes collapse into one pending reload.
func (d *FileDocument) Watch(post func(func()), onErr func(error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		return nil
	}
	if !d.Valid() {
		return ErrClosed
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(d.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(d.path), err)
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	if onErr == nil {
		onErr = func(error) {}
	}
	d.watcher = w
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	go d.run(w, d.stopCh, d.doneCh, post, onErr)
	return nil
}

func (d *FileDocument) run(w *fsnotify.Watcher, stopCh, doneCh chan struct{}, post func(func()), onErr func(error)) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != d.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if !d.pending.CompareAndSwap(false, true) {
				continue
			}
			post(func() {
				d.pending.Store(false)
				if !d.Valid() {
					return
				}
				if err := d.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
					onErr(err)
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			onErr(fmt.Errorf("watch %s: %w", d.path, err))
		}
	}
}

// StopWatching stops the watcher goroutine and waits for it to exit.
func (d *FileDocument) StopWatching() {
	d.mu.Lock()
	w, stopCh, doneCh := d.watcher, d.stopCh, d.doneCh
	d.watcher = nil
	d.mu.Unlock()
	if w == nil {
		return
	}
	close(stopCh)
	<-doneCh
	_ = w.Close()
}

// Close stops watching and closes the underlying buffer. The file is left on disk.
func (d *FileDocument) Close() {
	d.StopWatching()
	d.Buffer.Close()
}

func (d *FileDocument) flush() error {
	if err := os.WriteFile(d.path, []byte(d.Snapshot().Text), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
