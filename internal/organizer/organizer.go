package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modelsort/internal/archive"
	"modelsort/internal/config"
	"modelsort/internal/discovery"
	"modelsort/internal/fileutil"
	"modelsort/internal/history"
	"modelsort/internal/logging"
	"modelsort/internal/placement"
	"modelsort/internal/runid"
	"modelsort/internal/services"
	"modelsort/internal/staging"
)

// Recorder persists run progress. *history.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, run history.Run) error
	FinishRun(ctx context.Context, id, state, errorMessage string, archiveCount int) error
	RecordPlacements(ctx context.Context, id string, placements []placement.Placement) error
}

// Request names the trees for one run.
type Request struct {
	TargetPath string
	OutputPath string
	// TempPath is the workspace base; the run ID is appended to it.
	TempPath string
	// RunID is generated when empty.
	RunID string
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	State      State
	Workspace  string
	Archives   int
	Placements []placement.Placement
	// AbortReason explains an Aborted run.
	AbortReason string
	// Transitions lists every state the run passed through, starting at Idle.
	Transitions []State
	// CleanupErr is set when the workspace could not be removed.
	CleanupErr error
}

// Placed counts the placements that produced output.
func (r Result) Placed() int {
	n := 0
	for _, p := range r.Placements {
		if p.Action != placement.ActionSkipped {
			n++
		}
	}
	return n
}

// Option customizes an Organizer.
type Option func(*Organizer)

// WithRecorder records runs in the given history store.
func WithRecorder(r Recorder) Option {
	return func(o *Organizer) { o.recorder = r }
}

// WithArchiveReporter registers a callback invoked after each archive is
// extracted.
func WithArchiveReporter(fn func(archive.Tree)) Option {
	return func(o *Organizer) { o.onArchive = fn }
}

// WithClock overrides the time source used for run IDs.
func WithClock(now func() time.Time) Option {
	return func(o *Organizer) { o.now = now }
}

// Organizer runs the organize pipeline.
type Organizer struct {
	cfg       *config.Config
	base      *slog.Logger
	logger    *slog.Logger
	recorder  Recorder
	onArchive func(archive.Tree)
	now       func() time.Time
}

// New constructs an organizer.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Organizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Organizer{
		cfg:    cfg,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "organizer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type run struct {
	*Organizer
	req    Request
	res    *Result
	logger *slog.Logger
	// recorder shadows the organizer's so a failed BeginRun disables
	// history for this run only.
	recorder Recorder
	// ownsWorkspace is set once this run has created the workspace.
	ownsWorkspace bool
	// Ancestors of the workspace and output that this run had to create.
	workspaceParents []string
	outputParents    []string
}

func (r *run) transition(ctx context.Context, state State) context.Context {
	r.res.State = state
	r.res.Transitions = append(r.res.Transitions, state)
	ctx = services.WithStage(ctx, string(state))
	r.logger = logging.WithContext(ctx, r.Organizer.logger)
	r.logger.Debug("state transition", logging.String("state", string(state)))
	return ctx
}

// Organize executes one run. A returned error means the run failed (or never
// started); an aborted run returns a nil error with State Aborted.
func (o *Organizer) Organize(ctx context.Context, req Request) (Result, error) {
	if req.RunID == "" {
		req.RunID = runid.New(o.now())
	}
	if strings.TrimSpace(req.TempPath) == "" {
		req.TempPath = o.cfg.Paths.TempDir
	}
	req.TargetPath = absPath(req.TargetPath)
	req.OutputPath = absPath(req.OutputPath)
	req.TempPath = absPath(req.TempPath)
	res := Result{RunID: req.RunID, Workspace: staging.WorkspacePath(req.TempPath, req.RunID)}
	ctx = services.WithRunID(ctx, req.RunID)
	r := &run{Organizer: o, req: req, res: &res, recorder: o.recorder}
	ctx = r.transition(ctx, StateIdle)

	if err := validateRequest(req); err != nil {
		res.State = StateFailed
		return res, err
	}

	lock, err := AcquireLock(o.cfg.LockPath())
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			r.logger.Warn("release run lock", logging.Error(err))
		}
	}()

	r.begin(ctx)
	runErr := r.execute(ctx)
	if runErr != nil {
		r.transition(ctx, StateFailed)
		logging.ErrorWithContext(r.logger, "run failed", "run_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "output removed; fix the cause and rerun"),
		)
	}
	r.cleanup(ctx)
	r.finish(ctx, runErr)
	return res, runErr
}

func absPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func validateRequest(req Request) error {
	target := strings.TrimSpace(req.TargetPath)
	output := strings.TrimSpace(req.OutputPath)
	if target == "" || output == "" {
		return services.Wrap(services.ErrValidation, "idle", "validate request", "target and output paths are required", nil)
	}
	info, err := os.Stat(target)
	if err != nil {
		return services.Wrap(services.ErrValidation, "idle", "validate request", "source directory unavailable", err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrValidation, "idle", "validate request", fmt.Sprintf("%s is not a directory", target), nil)
	}
	cleanTarget, cleanOutput := filepath.Clean(target), filepath.Clean(output)
	if cleanTarget == cleanOutput {
		return services.Wrap(services.ErrValidation, "idle", "validate request", "output directory must differ from source directory", nil)
	}
	if rel, err := filepath.Rel(cleanOutput, cleanTarget); err == nil && !strings.HasPrefix(rel, "..") {
		return services.Wrap(services.ErrValidation, "idle", "validate request", "source directory must not be inside the output directory", nil)
	}
	return nil
}

// execute runs bootstrap through processing. Rollback of the output happens
// here so it runs exactly once.
func (r *run) execute(ctx context.Context) error {
	ctx = r.transition(ctx, StateBootstrapping)
	createdOutput, aborted, err := r.bootstrap(ctx)
	if err != nil || aborted {
		fileutil.RemoveEmptyDirs(r.outputParents)
		return err
	}

	err = r.process(ctx)
	if err != nil && createdOutput {
		if rmErr := os.RemoveAll(r.req.OutputPath); rmErr != nil {
			r.logger.Warn("rollback of output failed",
				logging.String("output", r.req.OutputPath),
				logging.Error(rmErr),
			)
		}
		fileutil.RemoveEmptyDirs(r.outputParents)
		r.res.Placements = nil
	}
	return err
}

// bootstrap creates the workspace and output root. Either one existing
// beforehand aborts the run; only directories created here are removed.
func (r *run) bootstrap(ctx context.Context) (createdOutput, aborted bool, err error) {
	workspace := r.res.Workspace
	r.workspaceParents, err = fileutil.MkdirParents(filepath.Dir(workspace), 0o755)
	if err != nil {
		return false, false, services.Wrap(services.ErrBootstrap, "bootstrapping", "create workspace parent", "", err)
	}
	createdWorkspace, err := createFresh(workspace)
	if err != nil {
		return false, false, services.Wrap(services.ErrBootstrap, "bootstrapping", "create workspace", workspace, err)
	}
	if !createdWorkspace {
		r.abort(ctx, "workspace already exists: "+workspace)
		return false, true, nil
	}
	r.ownsWorkspace = true

	output := r.req.OutputPath
	r.outputParents, err = fileutil.MkdirParents(filepath.Dir(output), 0o755)
	if err != nil {
		return false, false, services.Wrap(services.ErrBootstrap, "bootstrapping", "create output parent", "", err)
	}
	createdOutput, err = createFresh(output)
	if err != nil {
		return false, false, services.Wrap(services.ErrBootstrap, "bootstrapping", "create output", output, err)
	}
	if !createdOutput {
		r.abort(ctx, "output directory already exists: "+output)
		return false, true, nil
	}
	return true, false, nil
}

func (r *run) abort(ctx context.Context, reason string) {
	r.res.AbortReason = reason
	r.transition(ctx, StateAborted)
	logging.WarnWithContext(r.logger, "run aborted", "run_aborted",
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "nothing was extracted or placed"),
		logging.String(logging.FieldErrorHint, "choose a new output directory or remove the existing one"),
	)
}

// createFresh creates dir and reports false when it already existed.
func createFresh(dir string) (bool, error) {
	err := os.Mkdir(dir, 0o755)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	return err == nil, err
}

func (r *run) process(ctx context.Context) error {
	ctx = r.transition(ctx, StateScanning)
	organize := r.cfg.Organize
	opts := discovery.Options{
		ArchiveExtensions: organize.ArchiveExtensions,
		AssetExtensions:   organize.AssetExtensions,
		Prune:             []string{r.req.OutputPath, r.res.Workspace},
	}
	matcher, err := discovery.LoadIgnore(r.req.TargetPath, organize.IgnoreFile)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "scanning", "load ignore file", "", err)
	}
	if matcher != nil {
		opts.Ignore = matcher
		r.logger.Debug("ignore file loaded", logging.String("file", organize.IgnoreFile))
	}
	found, err := discovery.Scan(r.req.TargetPath, opts)
	if err != nil {
		return services.Wrap(services.ErrBootstrap, "scanning", "scan source tree", r.req.TargetPath, err)
	}
	r.logger.Info("source tree scanned",
		logging.Int("archives", len(found.Archives)),
		logging.Int("loose_assets", len(found.Assets)),
	)

	ctx = r.transition(ctx, StateProcessing)
	componentLogger := logging.WithContext(ctx, r.base)
	placer := placement.New(r.req.OutputPath, r.cfg.MoveExtracted(), componentLogger)

	loose, err := placer.PlaceAll(ctx, discovery.AssetDirectories(found.Assets), true)
	r.res.Placements = append(r.res.Placements, loose...)
	if err != nil {
		return services.Wrap(services.ErrPlacement, "processing", "place loose assets", "", err)
	}

	extractor, err := archive.NewExtractor(organize.FilenameEncoding, componentLogger)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "processing", "build extractor", "", err)
	}
	expander := &archive.Expander{
		Extractor:         extractor,
		ArchiveExtensions: organize.ArchiveExtensions,
		AssetExtensions:   organize.AssetExtensions,
		MaxDepth:          organize.MaxArchiveDepth,
		Logger:            componentLogger,
		OnExtracted: func(tree archive.Tree) {
			r.res.Archives++
			if r.onArchive != nil {
				r.onArchive(tree)
			}
		},
	}
	trees, err := expander.Expand(ctx, found.Archives, r.res.Workspace)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "processing", "expand archives", "", err)
	}

	for _, tree := range trees {
		placed, err := placer.PlaceAll(ctx, discovery.AssetDirectories(tree.Assets), false)
		r.res.Placements = append(r.res.Placements, placed...)
		if err != nil {
			return services.Wrap(services.ErrPlacement, "processing", "place extracted assets", tree.Archive, err)
		}
	}

	r.transition(ctx, StateSucceeded)
	r.logger.Info("run succeeded",
		logging.Int("archives", r.res.Archives),
		logging.Int("placed", r.res.Placed()),
		logging.Int("skipped", len(r.res.Placements)-r.res.Placed()),
	)
	return nil
}

// cleanup removes the workspace when this run created it, along with any
// workspace ancestors the run created that are empty again. Result.State keeps
// the outcome; the CleanedUp step only shows in Transitions.
func (r *run) cleanup(ctx context.Context) {
	outcome := r.res.State
	if r.ownsWorkspace {
		if err := os.RemoveAll(r.res.Workspace); err != nil {
			r.res.CleanupErr = err
			logging.WarnWithContext(r.logger, "workspace cleanup failed", "workspace_cleanup_failed",
				logging.String("workspace", r.res.Workspace),
				logging.Error(err),
				logging.String(logging.FieldImpact, "extracted files remain on disk"),
				logging.String(logging.FieldErrorHint, "run `modelsort workspace clean`"),
			)
		}
	}
	fileutil.RemoveEmptyDirs(r.workspaceParents)
	r.transition(ctx, StateCleanedUp)
	r.res.State = outcome
}

func (r *run) begin(ctx context.Context) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.BeginRun(ctx, history.Run{
		ID:            r.req.RunID,
		TargetPath:    r.req.TargetPath,
		OutputPath:    r.req.OutputPath,
		WorkspacePath: r.res.Workspace,
		State:         string(StateBootstrapping),
		StartedAt:     r.now(),
	})
	if err != nil {
		r.warnHistory(err)
		r.recorder = nil
	}
}

func (r *run) finish(ctx context.Context, runErr error) {
	if r.recorder == nil {
		return
	}
	// History writes must land even when the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	message := r.res.AbortReason
	if runErr != nil {
		message = runErr.Error()
	}
	if r.res.State == StateSucceeded {
		if err := r.recorder.RecordPlacements(ctx, r.req.RunID, r.res.Placements); err != nil {
			r.warnHistory(err)
		}
	}
	if err := r.recorder.FinishRun(ctx, r.req.RunID, string(r.res.State), message, r.res.Archives); err != nil {
		r.warnHistory(err)
	}
}

func (r *run) warnHistory(err error) {
	logging.WarnWithContext(r.logger, "run history update failed", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "run missing from `modelsort history`"),
		logging.String(logging.FieldErrorHint, "check state_dir permissions"),
	)
}
