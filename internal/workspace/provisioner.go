package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"codedojo/internal/telemetry"
)

type ProvisionerOptions struct {
	// DefaultRoot is used when no backing project path has been remembered yet.
	DefaultRoot string
	SDKType     string
	// Paths supplies the remembered root. The provisioner never writes it; callers
	// remember a project once it has passed environment validation.
	Paths PathStore
	Detector    *SDKDetector
	// Confirm is asked before a new project is created. Returning false aborts.
	Confirm func(root string) bool
	Logger  *telemetry.Logger
}

// DirProvisioner keeps the backing project as a plain directory with a project.yaml
// descriptor and a source root for course files.
type DirProvisioner struct {
	opts ProvisionerOptions
}

func NewDirProvisioner(opts ProvisionerOptions) *DirProvisioner {
	if opts.SDKType == "" {
		opts.SDKType = "go"
	}
	return &DirProvisioner{opts: opts}
}

func (p *DirProvisioner) EnsureBackingProject(ctx context.Context, closeTarget *Project) (*Project, error) {
	root := p.opts.DefaultRoot
	if p.opts.Paths != nil && p.opts.Paths.WorkspacePath() != "" {
		root = p.opts.Paths.WorkspacePath()
	}
	if root == "" {
		return nil, fmt.Errorf("no backing project location configured")
	}
	if closeTarget != nil && closeTarget.Root == root {
		return closeTarget, nil
	}

	project, err := LoadProject(root)
	switch {
	case err == nil:
		return project, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if p.opts.Confirm != nil && !p.opts.Confirm(root) {
		p.opts.Logger.Info("workspace.provision_aborted", map[string]any{"root": root})
		return nil, ErrAborted
	}
	project = &Project{
		Name:       filepath.Base(root),
		Modules:    []string{"main"},
		SourceRoot: "src",
		Root:       root,
	}
	if p.opts.Detector != nil {
		sdk, err := p.opts.Detector.Detect(ctx, p.opts.SDKType)
		if err != nil {
			p.opts.Logger.Warn("workspace.sdk_detect_failed", map[string]any{"error": err.Error()})
		} else {
			project.SDK = sdk
		}
	}
	if err := SaveProject(project); err != nil {
		return nil, err
	}
	p.opts.Logger.Info("workspace.provisioned", map[string]any{"root": root, "sdk": project.SDK != nil})
	return project, nil
}

// LoadProject reads <root>/project.yaml. A missing descriptor yields os.ErrNotExist.
func LoadProject(root string) (*Project, error) {
	b, err := os.ReadFile(filepath.Join(root, DescriptorName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read project descriptor: %w", err)
	}
	project := &Project{}
	if err := yaml.Unmarshal(b, project); err != nil {
		return nil, fmt.Errorf("parse project descriptor: %w", err)
	}
	project.Root = root
	if project.SourceRoot == "" {
		project.SourceRoot = "src"
	}
	return project, nil
}

func SaveProject(project *Project) error {
	if err := os.MkdirAll(filepath.Join(project.Root, project.SourceRoot), 0o755); err != nil {
		return fmt.Errorf("create project dirs: %w", err)
	}
	b, err := yaml.Marshal(project)
	if err != nil {
		return fmt.Errorf("encode project descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(project.Root, DescriptorName), b, 0o644); err != nil {
		return fmt.Errorf("write project descriptor: %w", err)
	}
	return nil
}
