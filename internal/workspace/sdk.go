package workspace

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var versionToken = regexp.MustCompile(`\d+(\.\d+)+`)

// SDKDetector finds an installed SDK by asking its binary for a version.
type SDKDetector struct {
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewSDKDetector() *SDKDetector {
	return &SDKDetector{
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func (d *SDKDetector) Detect(ctx context.Context, typ string) (*SDK, error) {
	if typ == "" {
		typ = "go"
	}
	bin, err := d.lookPath(typ)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH", typ)
	}
	args := []string{"--version"}
	if typ == "go" {
		args = []string{"version"}
	}
	out, err := d.run(ctx, bin, args...)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %s", typ, strings.Join(args, " "), strings.TrimSpace(string(out)))
	}
	v := versionToken.FindString(string(out))
	if v == "" {
		return nil, fmt.Errorf("no version in %s output: %q", typ, strings.TrimSpace(string(out)))
	}
	sdk := &SDK{Type: typ, Version: v}
	if typ == "go" {
		if root, err := d.run(ctx, bin, "env", "GOROOT"); err == nil {
			sdk.Home = strings.TrimSpace(string(root))
		}
	}
	return sdk, nil
}
