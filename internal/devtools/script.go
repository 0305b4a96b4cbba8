package devtools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ScriptKind          = "replay"
	ScriptSchemaVersion = 1
)

type Op string

const (
	OpSetText   Op = "set_text"
	OpInsert    Op = "insert"
	OpDelete    Op = "delete"
	OpMoveCaret Op = "move_caret"
	OpSelect    Op = "select"
	OpExpect    Op = "expect"
)

// Script is a recorded sequence of editor actions played against a lesson, used for
// demos and smoke checks of course content.
type Script struct {
	Kind          string   `yaml:"kind"`
	SchemaVersion int      `yaml:"schema_version"`
	Name          string   `yaml:"name"`
	LessonID      string   `yaml:"lesson_id"`
	Actions       []Action `yaml:"actions"`

	Path string `yaml:"-"`
}

type Action struct {
	Op Op `yaml:"op"`
	// At is the insert offset in runes; omitted means the end of the document.
	At     *int          `yaml:"at"`
	Text   string        `yaml:"text"`
	Start  int           `yaml:"start"`
	End    int           `yaml:"end"`
	Offset int           `yaml:"offset"`
	After  time.Duration `yaml:"after"`
	Expect *Expectation  `yaml:"expect"`
}

type Expectation struct {
	LessonID     string   `yaml:"lesson_id"`
	Cursor       *int     `yaml:"cursor"`
	Passed       []string `yaml:"passed"`
	Idle         bool     `yaml:"idle"`
	TextContains string   `yaml:"text_contains"`
}

func (s *Script) Validate() error {
	if s.Kind != ScriptKind {
		return fmt.Errorf("kind must be %q", ScriptKind)
	}
	if s.SchemaVersion != ScriptSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d", s.SchemaVersion)
	}
	if strings.TrimSpace(s.LessonID) == "" {
		return fmt.Errorf("lesson_id is required")
	}
	if len(s.Actions) == 0 {
		return fmt.Errorf("at least one action is required")
	}
	for i, a := range s.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
	}
	return nil
}

func (a Action) Validate() error {
	if a.After < 0 {
		return fmt.Errorf("after must not be negative")
	}
	switch a.Op {
	case OpSetText, OpMoveCaret:
	case OpInsert:
		if a.Text == "" {
			return fmt.Errorf("insert needs text")
		}
	case OpDelete, OpSelect:
		if a.End < a.Start {
			return fmt.Errorf("%s end %d before start %d", a.Op, a.End, a.Start)
		}
	case OpExpect:
		if a.Expect == nil {
			return fmt.Errorf("expect needs an expect block")
		}
	default:
		return fmt.Errorf("unknown op %q", a.Op)
	}
	return nil
}

func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	s := &Script{}
	if err := yaml.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("parse replay %s: %w", path, err)
	}
	s.Path = path
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate replay %s: %w", path, err)
	}
	return s, nil
}

// LoadScripts reads every *.yaml replay in dir, sorted by name.
func LoadScripts(dir string) ([]*Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}
	var out []*Script
	for _, e := range entries {
		if e.IsDir() || (filepath.Ext(e.Name()) != ".yaml" && filepath.Ext(e.Name()) != ".yml") {
			continue
		}
		s, err := LoadScript(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
