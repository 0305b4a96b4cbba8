package workspace

import (
	"errors"
	"fmt"
)

var ErrAborted = errors.New("backing project setup aborted")

const DescriptorName = "project.yaml"

type SDK struct {
	Type    string `yaml:"type"`
	Version string `yaml:"version"`
	Home    string `yaml:"home,omitempty"`
}

type Project struct {
	Name       string   `yaml:"name"`
	SDK        *SDK     `yaml:"sdk,omitempty"`
	Modules    []string `yaml:"modules"`
	SourceRoot string   `yaml:"source_root"`

	Root string `yaml:"-"`
}

type EnvKind int

const (
	NoSdk EnvKind = iota + 1
	OldSdk
	InvalidSdk
	NoModule
)

func (k EnvKind) String() string {
	switch k {
	case NoSdk:
		return "no_sdk"
	case OldSdk:
		return "old_sdk"
	case InvalidSdk:
		return "invalid_sdk"
	case NoModule:
		return "no_module"
	default:
		return "unknown"
	}
}

// EnvironmentError aborts a lesson open before any document or session exists.
type EnvironmentError struct {
	Kind   EnvKind
	Detail string
}

func (e *EnvironmentError) Error() string {
	if e.Detail == "" {
		return "environment check failed: " + e.Kind.String()
	}
	return fmt.Sprintf("environment check failed: %s: %s", e.Kind, e.Detail)
}
