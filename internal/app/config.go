package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	clog "github.com/charmbracelet/log"

	"codedojo/internal/session"
)

const EnvPrefix = "CODEDOJO_"

// Config controls runtime behavior for the lesson engine.
type Config struct {
	DataDir    string `env:"DATA_DIR"`
	CoursesDir string `env:"COURSES_DIR"`
	ReplaysDir string `env:"REPLAYS_DIR"`
	// WorkspaceDir is where a backing project is created when none is remembered.
	WorkspaceDir  string        `env:"WORKSPACE_DIR"`
	LogPath       string        `env:"LOG_PATH"`
	LogLevel      string        `env:"LOG_LEVEL"`
	StoreKind     string        `env:"STORE"`
	ScratchName   string        `env:"SCRATCH_NAME"`
	MaxChainDepth int           `env:"MAX_CHAIN_DEPTH"`
	Watch         bool          `env:"WATCH"`
	WatchDebounce time.Duration `env:"WATCH_DEBOUNCE"`
	ReplaySpeed   float64       `env:"REPLAY_SPEED"`
	UI            UIConfig      `envPrefix:"UI_"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	ASCIIOnly    bool   `env:"ASCII"`
	Plain        bool   `env:"PLAIN"`
	WrapWidth    int    `env:"WRAP"`
}

func DefaultConfig() Config {
	return Config{
		CoursesDir:    "courses",
		ReplaysDir:    "replays",
		LogLevel:      "info",
		StoreKind:     "sqlite",
		ScratchName:   session.DefaultScratchName,
		MaxChainDepth: session.DefaultMaxChainDepth,
		Watch:         true,
		WatchDebounce: 150 * time.Millisecond,
		UI: UIConfig{
			StyleVariant: "modern_arcade",
			WrapWidth:    78,
		},
	}
}

// LoadConfig starts from DefaultConfig and applies CODEDOJO_* environment overrides.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreKind {
	case "", "sqlite", "file":
	default:
		return fmt.Errorf("invalid store kind %q", c.StoreKind)
	}
	if c.StoreKind == "" {
		c.StoreKind = "sqlite"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := clog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.UI.StyleVariant {
	case "", "modern_arcade", "cozy_clean", "retro_terminal", "plain":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "modern_arcade"
	}
	if c.UI.WrapWidth <= 0 {
		c.UI.WrapWidth = 78
	}
	if c.MaxChainDepth < 0 {
		return fmt.Errorf("max chain depth must not be negative")
	}
	if c.MaxChainDepth == 0 {
		c.MaxChainDepth = session.DefaultMaxChainDepth
	}
	if c.WatchDebounce < 0 {
		c.WatchDebounce = 0
	}
	if c.ReplaySpeed < 0 {
		return fmt.Errorf("replay speed must not be negative")
	}
	if strings.ContainsAny(c.ScratchName, `/\`) {
		return fmt.Errorf("scratch name %q must not contain path separators", c.ScratchName)
	}
	if strings.TrimSpace(c.ScratchName) == "" {
		c.ScratchName = session.DefaultScratchName
	}
	if c.CoursesDir == "" {
		c.CoursesDir = "courses"
	}
	if c.ReplaysDir == "" {
		c.ReplaysDir = "replays"
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return errors.New("cannot resolve user home directory")
		}
		c.DataDir = filepath.Join(home, ".local", "share", "codedojo")
	}
	if c.WorkspaceDir == "" {
		c.WorkspaceDir = filepath.Join(c.DataDir, "workspace")
	}
	return nil
}
