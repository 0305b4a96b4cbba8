package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"codedojo/internal/course"
	"codedojo/internal/devtools"
	"codedojo/internal/editor"
	"codedojo/internal/progress"
	"codedojo/internal/session"
	"codedojo/internal/telemetry"
	"codedojo/internal/ui"
	"codedojo/internal/workspace"
)

type App struct {
	cfg Config

	logger    *telemetry.Logger
	store     progress.Store
	progress  *progress.Log
	presenter *ui.TextPresenter
	detector  *workspace.SDKDetector

	sessionID string
	courses   []*course.Course
}

func New(ctx context.Context, cfg Config, out io.Writer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(telemetry.Options{Path: cfg.LogPath, Level: cfg.LogLevel})
	if err != nil {
		return nil, err
	}

	courses, skipped, err := course.NewLoader().LoadCourses(ctx, cfg.CoursesDir)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	for _, s := range skipped {
		logger.Warn("content.skipped", map[string]any{"path": s.Path, "course": s.CourseID, "lesson": s.LessonID, "error": s.Err.Error()})
	}
	if len(courses) == 0 {
		_ = logger.Close()
		return nil, fmt.Errorf("no courses available under %s", cfg.CoursesDir)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	log := progress.NewLog(store, courses, logger)
	if err := log.Load(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		progress: log,
		presenter: ui.NewTextPresenter(out, ui.Options{
			StyleVariant: cfg.UI.StyleVariant,
			ASCIIOnly:    cfg.UI.ASCIIOnly,
			Plain:        cfg.UI.Plain,
			WrapWidth:    cfg.UI.WrapWidth,
		}),
		detector:  workspace.NewSDKDetector(),
		sessionID: uuid.NewString(),
		courses:   courses,
	}
	logger.Info("app.start", map[string]any{"session": a.sessionID, "courses": len(courses), "store": cfg.StoreKind})
	return a, nil
}

func openStore(ctx context.Context, cfg Config) (progress.Store, error) {
	if cfg.StoreKind == "file" {
		return progress.NewFileStore(filepath.Join(cfg.DataDir, "progress.yaml")), nil
	}
	store, err := progress.NewSQLite(filepath.Join(cfg.DataDir, "progress.db"))
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (a *App) Courses() []*course.Course { return a.courses }
func (a *App) Progress() *progress.Log    { return a.progress }

// ShowCourses prints every course with its lesson pass marks.
func (a *App) ShowCourses() {
	a.presenter.RefreshProgress(a.courses)
}

// Play opens a lesson and runs the control loop until the lesson chain ends or ctx
// is cancelled. confirm is asked before a backing project is created; nil accepts.
func (a *App) Play(ctx context.Context, lessonName string, confirm func(root string) bool) error {
	l, err := course.FindLessonByName(a.courses, lessonName)
	if err != nil {
		return err
	}
	loop := editor.NewLoop(0)
	post := func(fn func()) { loop.Post(fn) }
	if a.cfg.WatchDebounce > 0 {
		post = func(fn func()) {
			time.AfterFunc(a.cfg.WatchDebounce, func() { loop.Post(fn) })
		}
	}
	docs := &workspace.FileProvider{
		ScratchDir: filepath.Join(a.cfg.DataDir, "scratch"),
		Watch:      a.cfg.Watch,
		Post:       post,
		OnWatchError: func(err error) {
			a.logger.Warn("editor.watch_error", map[string]any{"error": err.Error()})
		},
	}
	orch := a.orchestrator(ctx, l.Course(), docs, confirm, func(fn func()) { loop.Post(fn) }, loop.Stop)
	defer a.finish(orch)

	s, err := orch.Open(ctx, l)
	if err != nil {
		return err
	}
	if fd, ok := s.Document().(*editor.FileDocument); ok {
		a.logger.Info("app.playing", map[string]any{"lesson": l.LessonID, "file": fd.Path()})
	}
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Replay plays a scripted session. name is a script path or a script name under the
// replays directory.
func (a *App) Replay(ctx context.Context, name string) (devtools.Report, error) {
	path := name
	if _, err := os.Stat(path); err != nil {
		path = filepath.Join(a.cfg.ReplaysDir, name+".yaml")
	}
	script, err := devtools.LoadScript(path)
	if err != nil {
		return devtools.Report{}, err
	}
	l, err := course.FindLessonByName(a.courses, script.LessonID)
	if err != nil {
		return devtools.Report{}, err
	}
	docs := &workspace.FileProvider{ScratchDir: filepath.Join(a.cfg.DataDir, "scratch")}
	orch := a.orchestrator(ctx, l.Course(), docs, nil, nil, nil)
	defer a.finish(orch)

	if _, err := orch.Open(ctx, l); err != nil {
		return devtools.Report{}, err
	}
	target := &sessionTarget{orch: orch, courseID: l.Course().CourseID}
	return devtools.NewPlayer(a.cfg.ReplaySpeed, a.logger).Play(ctx, script, target)
}

func (a *App) orchestrator(ctx context.Context, c *course.Course, docs session.DocumentProvider, confirm func(string) bool, deferFn func(func()), onIdle func()) *session.Orchestrator {
	return session.New(session.Options{
		Courses:   a.courses,
		Documents: docs,
		Provisioner: workspace.NewDirProvisioner(workspace.ProvisionerOptions{
			DefaultRoot: a.cfg.WorkspaceDir,
			SDKType:     c.SDK.Type,
			Paths:       a.progress,
			Detector:    a.detector,
			Confirm:     confirm,
			Logger:      a.logger,
		}),
		Validator:     workspace.NewValidator(),
		Paths:         a.progress,
		HostProject:   a.hostProject(ctx, c),
		Presenter:     a.presenter,
		Recorder:      a.progress,
		Logger:        a.logger,
		ScratchName:   a.cfg.ScratchName,
		MaxChainDepth: a.cfg.MaxChainDepth,
		Defer:         deferFn,
		OnIdle:        onIdle,
	})
}

// hostProject describes the local toolchain for scratch courses that name an SDK.
func (a *App) hostProject(ctx context.Context, c *course.Course) *workspace.Project {
	if c.IsProjectBacked() || c.SDK.Type == "" {
		return nil
	}
	host := &workspace.Project{Name: "host", Modules: []string{"scratch"}}
	sdk, err := a.detector.Detect(ctx, c.SDK.Type)
	if err != nil {
		a.logger.Warn("app.sdk_detect_failed", map[string]any{"sdk": c.SDK.Type, "error": err.Error()})
		return host
	}
	host.SDK = sdk
	return host
}

func (a *App) finish(orch *session.Orchestrator) {
	orch.CloseAll()
	a.save(context.Background())
}

// Reset clears progress for one lesson, or for every lesson when name is empty.
func (a *App) Reset(ctx context.Context, name string) error {
	id := ""
	if name != "" {
		l, err := course.FindLessonByName(a.courses, name)
		if err != nil {
			return err
		}
		id = l.LessonID
	}
	if err := a.progress.Reset(id); err != nil {
		return err
	}
	a.logger.Info("progress.reset", map[string]any{"lesson": id})
	a.save(ctx)
	return nil
}

func (a *App) Stats() (progress.Summary, []progress.Entry) {
	return a.progress.Summary(), a.progress.Entries()
}

// save persists progress. Failures are warnings; in-memory progress stays valid.
func (a *App) save(ctx context.Context) {
	if err := a.progress.Save(ctx); err != nil {
		a.presenter.ReportError(err)
	}
}

func (a *App) Close() {
	a.save(context.Background())
	_ = a.store.Close()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	_ = a.logger.Close()
}

// sessionTarget lets a replay drive whichever lesson of a course is live.
type sessionTarget struct {
	orch     *session.Orchestrator
	courseID string
}

func (t *sessionTarget) Document() (editor.Editable, bool) { return t.orch.Document(t.courseID) }

func (t *sessionTarget) Current() (string, int, bool) {
	sessions := t.orch.Sessions()
	if len(sessions) == 0 {
		return "", 0, false
	}
	return sessions[0].Lesson().LessonID, sessions[0].Cursor(), true
}

func (t *sessionTarget) Passed(lessonID string) bool {
	l, err := course.FindLesson(t.orch.Courses(), lessonID)
	return err == nil && l.Passed()
}
