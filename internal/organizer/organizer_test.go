package organizer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"modelsort/internal/archive"
	"modelsort/internal/config"
	"modelsort/internal/logging"
	"modelsort/internal/organizer"
	"modelsort/internal/placement"
	"modelsort/internal/services"
	"modelsort/internal/testsupport"
)

type fixture struct {
	cfg    *config.Config
	base   string
	target string
	output string
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) fixture {
	t.Helper()
	var base string
	cfg := testsupport.NewConfig(t, append(opts, testsupport.BaseDir(&base))...)
	f := fixture{cfg: cfg, base: base, target: filepath.Join(base, "in"), output: filepath.Join(base, "out")}
	if err := os.MkdirAll(f.target, 0o755); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f fixture) request(runID string) organizer.Request {
	return organizer.Request{TargetPath: f.target, OutputPath: f.output, TempPath: f.cfg.Paths.TempDir, RunID: runID}
}

func TestOrganizePlacesLooseAndNestedAssets(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteText(t, filepath.Join(f.target, "loose", "wooden_chair", "chair.obj"), "chair")
	testsupport.WriteText(t, filepath.Join(f.target, "loose", "wooden_chair", "chair.mtl"), "mtl")
	testsupport.WriteZip(t, filepath.Join(f.target, "packs", "Model_Noodle_1.0.zip"),
		testsupport.File("Model_Noodle_1.0/noodle.obj", "noodle"),
		testsupport.File("Model_Noodle_1.0/tex/noodle.png", "png"),
	)
	testsupport.WriteZip(t, filepath.Join(f.target, "packs", "bundle.zip"),
		testsupport.File("readme.txt", "no assets at this level"),
		testsupport.Nested(t, "inner.zip",
			testsupport.File("crate_2/crate.obj", "crate"),
		),
	)

	var reported []string
	org := organizer.New(f.cfg, logging.NewNop(), organizer.WithArchiveReporter(func(tree archive.Tree) {
		reported = append(reported, filepath.Base(tree.Archive))
	}))
	res, err := org.Organize(context.Background(), f.request("20260101120000-aaaaaaaa"))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if res.State != organizer.StateSucceeded {
		t.Fatalf("state = %s, want succeeded", res.State)
	}
	wantTransitions := []organizer.State{
		organizer.StateIdle, organizer.StateBootstrapping, organizer.StateScanning,
		organizer.StateProcessing, organizer.StateSucceeded, organizer.StateCleanedUp,
	}
	if !reflect.DeepEqual(res.Transitions, wantTransitions) {
		t.Fatalf("transitions = %v", res.Transitions)
	}
	if res.Archives != 3 || len(reported) != 3 {
		t.Fatalf("archives = %d, reported = %v", res.Archives, reported)
	}

	checks := map[string]string{
		filepath.Join("WoodenChair", "WoodenChair", "chair.obj"):  "chair",
		filepath.Join("WoodenChair", "WoodenChair", "chair.mtl"):  "mtl",
		filepath.Join("Noodle", "Noodle1.0", "noodle.obj"):        "noodle",
		filepath.Join("Noodle", "Noodle1.0", "tex", "noodle.png"): "png",
		filepath.Join("Crate", "Crate2", "crate.obj"):             "crate",
	}
	for rel, want := range checks {
		if got := testsupport.ReadText(t, filepath.Join(f.output, rel)); got != want {
			t.Fatalf("%s = %q, want %q", rel, got, want)
		}
	}
	if res.Placed() != 3 {
		t.Fatalf("placed = %d, want 3", res.Placed())
	}

	testsupport.AssertMissing(t, res.Workspace)
	if got := testsupport.ReadText(t, filepath.Join(f.target, "loose", "wooden_chair", "chair.obj")); got != "chair" {
		t.Fatal("loose source modified")
	}
	if _, err := os.Stat(filepath.Join(f.target, "packs", "bundle.zip")); err != nil {
		t.Fatalf("source archive touched: %v", err)
	}
}

func TestOrganizeCollisionKeepsFirstWriter(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteZip(t, filepath.Join(f.target, "a.zip"), testsupport.File("chair_01/chair.obj", "first"))
	testsupport.WriteZip(t, filepath.Join(f.target, "b.zip"),
		testsupport.File("Chair 01/chair.obj", "second"),
		testsupport.File("Chair 01/extra.obj", "extra"),
	)

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	target := filepath.Join(f.output, "Chair", "Chair01")
	if got := testsupport.ReadText(t, filepath.Join(target, "chair.obj")); got != "first" {
		t.Fatalf("collision overwrote first writer: %q", got)
	}
	testsupport.AssertMissing(t, filepath.Join(target, "extra.obj"))

	var skipped int
	for _, p := range res.Placements {
		if p.Action == placement.ActionSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Fatalf("expected one skipped placement, got %+v", res.Placements)
	}
}

func TestOrganizeRollsBackOnCorruptArchive(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteText(t, filepath.Join(f.target, "lamp", "lamp.obj"), "lamp")
	testsupport.WriteZip(t, filepath.Join(f.target, "a_good.zip"), testsupport.File("desk/desk.obj", "desk"))
	testsupport.WriteCorruptZip(t, filepath.Join(f.target, "b_broken.zip"))

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	if res.State != organizer.StateFailed {
		t.Fatalf("state = %s, want failed", res.State)
	}
	if last := res.Transitions[len(res.Transitions)-1]; last != organizer.StateCleanedUp {
		t.Fatalf("last transition = %s", last)
	}
	testsupport.AssertMissing(t, f.output)
	testsupport.AssertMissing(t, res.Workspace)
	if len(res.Placements) != 0 {
		t.Fatalf("rolled back run should report no placements, got %+v", res.Placements)
	}
}

func TestOrganizeAbortsWhenOutputExists(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteText(t, filepath.Join(f.output, "keep.txt"), "keep")
	testsupport.WriteZip(t, filepath.Join(f.target, "a.zip"), testsupport.File("desk/desk.obj", "desk"))

	called := false
	org := organizer.New(f.cfg, nil, organizer.WithArchiveReporter(func(archive.Tree) { called = true }))
	res, err := org.Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("abort should not return an error, got %v", err)
	}
	if res.State != organizer.StateAborted || res.AbortReason == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if called {
		t.Fatal("aborted run must not extract archives")
	}
	entries, err := os.ReadDir(f.output)
	if err != nil {
		t.Fatalf("pre-existing output removed: %v", err)
	}
	if len(entries) != 1 || testsupport.ReadText(t, filepath.Join(f.output, "keep.txt")) != "keep" {
		t.Fatalf("pre-existing output changed: %v", entries)
	}
	testsupport.AssertMissing(t, res.Workspace)
}

func TestOrganizeAbortsWhenWorkspaceExists(t *testing.T) {
	f := newFixture(t)
	runID := "20260101120000-bbbbbbbb"
	workspace := f.cfg.Paths.TempDir + runID
	testsupport.WriteText(t, filepath.Join(workspace, "stale.txt"), "stale")

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(runID))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if res.State != organizer.StateAborted {
		t.Fatalf("state = %s, want aborted", res.State)
	}
	testsupport.AssertMissing(t, f.output)
	if got := testsupport.ReadText(t, filepath.Join(workspace, "stale.txt")); got != "stale" {
		t.Fatal("pre-existing workspace was modified")
	}
}

func TestOrganizeFailsWhenBusy(t *testing.T) {
	f := newFixture(t)
	lock, err := organizer.AcquireLock(f.cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Release()

	_, err = organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	testsupport.AssertMissing(t, f.output)
}

func TestOrganizeRejectsMissingTarget(t *testing.T) {
	f := newFixture(t)
	req := f.request("")
	req.TargetPath = filepath.Join(f.base, "missing")
	_, err := organizer.New(f.cfg, nil).Organize(context.Background(), req)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if services.ExitCode(err) != 2 {
		t.Fatalf("exit code = %d", services.ExitCode(err))
	}
	testsupport.AssertMissing(t, f.output)
}

func TestOrganizeCancelledRunRollsBack(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteZip(t, filepath.Join(f.target, "a.zip"), testsupport.File("desk/desk.obj", "desk"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := organizer.New(f.cfg, nil).Organize(ctx, f.request(""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.State != organizer.StateFailed {
		t.Fatalf("state = %s", res.State)
	}
	testsupport.AssertMissing(t, f.output)
	testsupport.AssertMissing(t, res.Workspace)
}

func TestOrganizeMovePlacementLeavesSourcesIntact(t *testing.T) {
	f := newFixture(t, testsupport.WithPlacement(config.PlacementMove))
	testsupport.WriteText(t, filepath.Join(f.target, "lamp", "lamp.obj"), "lamp")
	testsupport.WriteZip(t, filepath.Join(f.target, "desk.zip"), testsupport.File("desk.obj", "desk"))

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	actions := map[string]placement.Action{}
	for _, p := range res.Placements {
		actions[p.Instance] = p.Action
	}
	if actions["Lamp"] != placement.ActionCopied || actions["Desk"] != placement.ActionMoved {
		t.Fatalf("unexpected actions %v", actions)
	}
	if testsupport.ReadText(t, filepath.Join(f.target, "lamp", "lamp.obj")) != "lamp" {
		t.Fatal("loose source removed in move mode")
	}
	if testsupport.ReadText(t, filepath.Join(f.output, "Desk", "Desk", "desk.obj")) != "desk" {
		t.Fatal("archive-root asset not placed under archive stem")
	}
}

func TestOrganizeSkipsOutputInsideTarget(t *testing.T) {
	f := newFixture(t)
	f.output = filepath.Join(f.target, "organized")
	testsupport.WriteText(t, filepath.Join(f.target, "tree_1", "tree.obj"), "tree")

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(res.Placements) != 1 {
		t.Fatalf("output tree should not be rescanned, got %+v", res.Placements)
	}
}

func TestOrganizeRecordsHistory(t *testing.T) {
	f := newFixture(t)
	store := testsupport.MustOpenHistory(t, f.cfg)
	testsupport.WriteZip(t, filepath.Join(f.target, "a.zip"), testsupport.File("desk/desk.obj", "desk"))

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.Local)
	org := organizer.New(f.cfg, nil, organizer.WithRecorder(store), organizer.WithClock(func() time.Time { return now }))
	res, err := org.Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if res.RunID[:14] != "20260203040506" {
		t.Fatalf("run ID should use the injected clock, got %s", res.RunID)
	}

	run, err := store.GetRun(context.Background(), res.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v %v", run, err)
	}
	if run.State != string(organizer.StateSucceeded) || run.ArchiveCount != 1 || run.PlacementCount != 1 {
		t.Fatalf("unexpected history row %+v", run)
	}

	testsupport.WriteCorruptZip(t, filepath.Join(f.target, "z.zip"))
	failed, err := org.Organize(context.Background(), organizer.Request{
		TargetPath: f.target, OutputPath: filepath.Join(f.base, "out2"), RunID: "20260203040507-cccccccc",
	})
	if err == nil {
		t.Fatal("expected failure")
	}
	row, err := store.GetRun(context.Background(), failed.RunID)
	if err != nil || row == nil {
		t.Fatalf("GetRun failed run: %v %v", row, err)
	}
	if row.State != string(organizer.StateFailed) || row.ErrorMessage == "" {
		t.Fatalf("unexpected failed row %+v", row)
	}
}

func TestOrganizeHonorsIgnoreFile(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteText(t, filepath.Join(f.target, ".modelsortignore"), "drafts/\n")
	testsupport.WriteText(t, filepath.Join(f.target, "drafts", "sketch", "sketch.obj"), "wip")
	testsupport.WriteZip(t, filepath.Join(f.target, "drafts", "old.zip"), testsupport.File("old/old.obj", "old"))
	testsupport.WriteText(t, filepath.Join(f.target, "final", "table", "table.obj"), "table")

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if res.Archives != 0 || len(res.Placements) != 1 || res.Placements[0].Instance != "Table" {
		t.Fatalf("ignored paths were organized: archives=%d placements=%+v", res.Archives, res.Placements)
	}
	testsupport.AssertMissing(t, filepath.Join(f.output, "Sketch"))
}

func TestOrganizePlacesNestedAssetDirectoriesAsOwnInstances(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteZip(t, filepath.Join(f.target, "car.zip"),
		testsupport.File("Model_Car_1/car.obj", "car"),
		testsupport.File("Model_Car_1/Model_Wheel_2/wheel.obj", "wheel"),
	)
	testsupport.WriteText(t, filepath.Join(f.target, "root.obj"), "root")
	testsupport.WriteText(t, filepath.Join(f.target, "chair_1", "chair.obj"), "chair")

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	checks := map[string]string{
		filepath.Join("Car", "Car1", "car.obj"):                    "car",
		filepath.Join("Car", "Car1", "Model_Wheel_2", "wheel.obj"): "wheel",
		filepath.Join("Wheel", "Wheel2", "wheel.obj"):              "wheel",
		filepath.Join("In", "In", "root.obj"):                      "root",
		filepath.Join("Chair", "Chair1", "chair.obj"):              "chair",
		filepath.Join("In", "In", "chair_1", "chair.obj"):          "chair",
	}
	for rel, want := range checks {
		if got := testsupport.ReadText(t, filepath.Join(f.output, rel)); got != want {
			t.Fatalf("%s = %q, want %q", rel, got, want)
		}
	}
	if res.Placed() != 4 {
		t.Fatalf("placed = %d, want 4: %+v", res.Placed(), res.Placements)
	}
}

func TestOrganizeKeepsUnflaggedUTF8Names(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteZip(t, filepath.Join(f.target, "isu.zip"),
		testsupport.ZipEntry{Name: "椅子_chair/chair.obj", Body: []byte("chair"), NonUTF8: true},
	)

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), f.request(""))
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(res.Placements) != 1 || res.Placements[0].Instance != "椅子Chair" || res.Placements[0].Category != "椅子Chair" {
		t.Fatalf("unexpected placements %+v", res.Placements)
	}
	if got := testsupport.ReadText(t, filepath.Join(f.output, "椅子Chair", "椅子Chair", "chair.obj")); got != "chair" {
		t.Fatalf("placed body = %q", got)
	}
}

func TestOrganizeRemovesParentsItCreated(t *testing.T) {
	f := newFixture(t)
	f.output = filepath.Join(f.base, "new", "deeper", "out")
	testsupport.WriteCorruptZip(t, filepath.Join(f.target, "broken.zip"))
	req := f.request("")
	req.TempPath = filepath.Join(f.base, "scratch", "nested", "ws-")

	res, err := organizer.New(f.cfg, nil).Organize(context.Background(), req)
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
	testsupport.AssertMissing(t, res.Workspace)
	testsupport.AssertMissing(t, filepath.Join(f.base, "new"))
	testsupport.AssertMissing(t, filepath.Join(f.base, "scratch"))
}

func TestOrganizeSuccessDropsOnlyWorkspaceParents(t *testing.T) {
	f := newFixture(t)
	f.output = filepath.Join(f.base, "new", "out")
	testsupport.WriteText(t, filepath.Join(f.target, "lamp", "lamp.obj"), "lamp")
	req := f.request("")
	req.TempPath = filepath.Join(f.base, "scratch", "ws-")

	if _, err := organizer.New(f.cfg, nil).Organize(context.Background(), req); err != nil {
		t.Fatalf("Organize: %v", err)
	}
	testsupport.AssertMissing(t, filepath.Join(f.base, "scratch"))
	if got := testsupport.ReadText(t, filepath.Join(f.output, "Lamp", "Lamp", "lamp.obj")); got != "lamp" {
		t.Fatalf("placed body = %q", got)
	}
}
