package workspace

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"codedojo/internal/course"
)

type SDKValidator struct{}

func NewValidator() *SDKValidator { return &SDKValidator{} }

// CheckEnvironment verifies the project's SDK and modules against the course
// requirement. Courses without an SDK requirement always pass.
func (SDKValidator) CheckEnvironment(p *Project, c *course.Course) error {
	req := c.SDK
	if req.Type == "" {
		return nil
	}
	if p == nil || p.SDK == nil || p.SDK.Type == "" {
		return &EnvironmentError{Kind: NoSdk, Detail: fmt.Sprintf("course %s needs a %s SDK", c.CourseID, req.Type)}
	}
	if !strings.EqualFold(p.SDK.Type, req.Type) {
		return &EnvironmentError{Kind: InvalidSdk, Detail: fmt.Sprintf("project SDK is %s, course needs %s", p.SDK.Type, req.Type)}
	}
	have, err := ParseSDKVersion(p.SDK.Version)
	if err != nil {
		return &EnvironmentError{Kind: InvalidSdk, Detail: fmt.Sprintf("unreadable SDK version %q", p.SDK.Version)}
	}
	if req.MinVersion != "" {
		floor, err := ParseSDKVersion(req.MinVersion)
		if err != nil {
			return fmt.Errorf("course %s min_version: %w", c.CourseID, err)
		}
		if have.LessThan(floor) {
			return &EnvironmentError{Kind: OldSdk, Detail: fmt.Sprintf("have %s, need %s or newer", have, floor)}
		}
	}
	if len(p.Modules) == 0 {
		return &EnvironmentError{Kind: NoModule, Detail: fmt.Sprintf("project %s has no modules", p.Name)}
	}
	return nil
}

// ParseSDKVersion accepts plain versions and toolchain spellings like "go1.22.3".
func ParseSDKVersion(raw string) (*version.Version, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "go")
	raw = strings.TrimPrefix(raw, "v")
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}
