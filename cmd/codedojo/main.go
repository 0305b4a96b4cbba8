package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"codedojo/internal/app"
)

var (
	cfg     app.Config
	envErr  error
	assumeY bool
)

var rootCmd = &cobra.Command{
	Use:           "codedojo",
	Short:         "Guided, step-by-step coding lessons that react to your edits",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return envErr
		}
		return cfg.Validate()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			a.ShowCourses()
			return nil
		})
	},
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses and lesson progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			a.ShowCourses()
			return nil
		})
	},
}

var playCmd = &cobra.Command{
	Use:   "play <lesson>",
	Short: "Open a lesson and follow your edits until the course chain ends",
	Long: `Opens the lesson's document (a scratch file, or a file in the backing project)
and watches it. Edit the file in any editor; each save is checked against the current
step. Finished lessons chain into the next unfinished one. Press Ctrl-C to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Play(cmd.Context(), args[0], confirm)
		})
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Play a recorded replay script against its lesson",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			report, err := a.Replay(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replay %s: %d actions played\n", report.Script, len(report.Steps))
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset [lesson]",
	Short: "Clear progress for one lesson, or for all lessons",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			return a.Reset(cmd.Context(), name)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show attempt and pass counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			summary, entries := a.Stats()
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "courses %d  lessons %d  passed %d  attempts %d  passes %d\n",
				summary.Courses, summary.Lessons, summary.Passed, summary.Attempts, summary.Passes)
			for _, e := range entries {
				last := "-"
				if !e.Timestamp.IsZero() {
					last = e.Timestamp.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "  %-28s passed=%-5t attempts=%-3d passes=%-3d last=%s\n", e.LessonID, e.Passed, e.Attempts, e.Passes, last)
			}
			return nil
		})
	},
}

func init() {
	cfg, envErr = app.LoadConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for progress, scratch files and the backing project")
	flags.StringVar(&cfg.CoursesDir, "courses", cfg.CoursesDir, "directory containing course manifests")
	flags.StringVar(&cfg.ReplaysDir, "replays", cfg.ReplaysDir, "directory containing replay scripts")
	flags.StringVar(&cfg.WorkspaceDir, "workspace", cfg.WorkspaceDir, "backing project location for project courses")
	flags.StringVar(&cfg.LogPath, "log", cfg.LogPath, "write JSON logs to this file")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&cfg.StoreKind, "store", cfg.StoreKind, "progress store: sqlite or file")
	flags.StringVar(&cfg.ScratchName, "scratch-name", cfg.ScratchName, "base name of scratch documents")
	flags.IntVar(&cfg.MaxChainDepth, "max-chain", cfg.MaxChainDepth, "maximum lessons opened in a row after completions")
	flags.StringVar(&cfg.UI.StyleVariant, "style", cfg.UI.StyleVariant, "ui style: modern_arcade, cozy_clean, retro_terminal, plain")
	flags.BoolVar(&cfg.UI.ASCIIOnly, "ascii", cfg.UI.ASCIIOnly, "use ASCII marks only")
	flags.BoolVar(&cfg.UI.Plain, "plain", cfg.UI.Plain, "disable colors and markdown styling")
	flags.IntVar(&cfg.UI.WrapWidth, "wrap", cfg.UI.WrapWidth, "markdown wrap width")

	playCmd.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "reload the document when the file changes on disk")
	playCmd.Flags().DurationVar(&cfg.WatchDebounce, "debounce", cfg.WatchDebounce, "delay before re-checking after a file change")
	playCmd.Flags().BoolVarP(&assumeY, "yes", "y", false, "create the backing project without asking")
	replayCmd.Flags().Float64Var(&cfg.ReplaySpeed, "speed", cfg.ReplaySpeed, "replay speed multiplier; 0 plays without delays")

	rootCmd.AddCommand(coursesCmd, playCmd, replayCmd, resetCmd, statsCmd)
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func confirm(root string) bool {
	if assumeY {
		return true
	}
	fmt.Fprintf(os.Stderr, "No backing project found. Create one at %s? [y/N] ", root)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
