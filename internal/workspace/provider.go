package workspace

import (
	"fmt"
	"path/filepath"

	"codedojo/internal/editor"
)

// FileProvider opens documents as files on disk, optionally watching them for
// external edits.
type FileProvider struct {
	ScratchDir   string
	Watch        bool
	Post         func(func())
	OnWatchError func(error)
}

func (p *FileProvider) OpenOrCreateScratch(name string) (editor.Editable, error) {
	if p.ScratchDir == "" {
		return nil, fmt.Errorf("scratch directory is not configured")
	}
	return p.open(filepath.Join(p.ScratchDir, name))
}

func (p *FileProvider) OpenOrCreateProjectFile(project *Project, name string) (editor.Editable, error) {
	if project == nil {
		return nil, fmt.Errorf("no backing project")
	}
	return p.open(filepath.Join(project.Root, project.SourceRoot, name))
}

func (p *FileProvider) open(path string) (editor.Editable, error) {
	doc, err := editor.OpenFile(path, "")
	if err != nil {
		return nil, err
	}
	if p.Watch {
		if err := doc.Watch(p.Post, p.OnWatchError); err != nil {
			doc.Close()
			return nil, err
		}
	}
	return doc, nil
}
