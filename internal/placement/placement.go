// Package placement files asset directories into the output hierarchy
// output/<Category>/<Instance>. An existing instance directory is never
// merged or overwritten; the first directory to claim a name keeps it.
package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"modelsort/internal/fileutil"
	"modelsort/internal/logging"
	"modelsort/internal/naming"
)

// Action records what happened to one asset directory.
type Action string

const (
	ActionCopied  Action = "copied"
	ActionMoved   Action = "moved"
	ActionSkipped Action = "skipped"
)

// Skip reasons.
const (
	ReasonExists    = "instance already exists"
	ReasonEmptyName = "name normalizes to nothing"
)

// ErrOverlap is returned when the output target lies inside the directory
// being placed.
var ErrOverlap = errors.New("output target inside asset directory")

// Placement is the record of one asset directory handled by the placer.
type Placement struct {
	Source   string
	Category string
	Instance string
	Target   string
	Action   Action
	Reason   string
	Bytes    int64
	// Loose is true for directories found in the source tree rather than
	// extracted from an archive.
	Loose bool
}

// Placer copies or moves asset directories below OutputRoot.
type Placer struct {
	OutputRoot string
	// MoveExtracted renames extracted directories into place instead of
	// copying them. Loose directories are always copied.
	MoveExtracted bool
	Logger        *slog.Logger
}

// New returns a placer for the given output root.
func New(outputRoot string, moveExtracted bool, logger *slog.Logger) *Placer {
	return &Placer{
		OutputRoot:    outputRoot,
		MoveExtracted: moveExtracted,
		Logger:        logging.NewComponentLogger(logger, "placement"),
	}
}

// PlaceAll places each directory in order and stops at the first error. In
// move mode a directory holding another listed directory is copied instead, so
// the nested one is still there when its own turn comes.
func (p *Placer) PlaceAll(ctx context.Context, dirs []string, loose bool) ([]Placement, error) {
	placements := make([]Placement, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return placements, err
		}
		move := p.MoveExtracted && !loose && !holdsAnother(dir, dirs)
		placement, err := p.place(dir, loose, move)
		if err != nil {
			return placements, err
		}
		placements = append(placements, placement)
	}
	return placements, nil
}

// Place files one asset directory under its normalized category and instance.
func (p *Placer) Place(dir string, loose bool) (Placement, error) {
	return p.place(dir, loose, p.MoveExtracted && !loose)
}

func (p *Placer) place(dir string, loose, move bool) (Placement, error) {
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	name := naming.Normalize(filepath.Base(dir))
	placement := Placement{Source: dir, Category: name.Category, Instance: name.Instance, Loose: loose}
	if name.Empty() {
		placement.Action = ActionSkipped
		placement.Reason = ReasonEmptyName
		logging.WarnWithContext(logger, "asset directory skipped", "placement_name_empty",
			logging.String("source", dir),
			logging.String(logging.FieldImpact, "assets in this directory are not organized"),
			logging.String(logging.FieldErrorHint, "rename the directory or archive to include letters"),
		)
		return placement, nil
	}

	categoryDir := filepath.Join(p.OutputRoot, name.Category)
	placement.Target = filepath.Join(categoryDir, name.Instance)

	if within(placement.Target, dir) {
		return placement, fmt.Errorf("%w: %s is inside %s", ErrOverlap, placement.Target, dir)
	}

	if err := os.MkdirAll(categoryDir, 0o755); err != nil {
		return placement, fmt.Errorf("create category directory %s: %w", categoryDir, err)
	}

	if _, err := os.Lstat(placement.Target); err == nil {
		placement.Action = ActionSkipped
		placement.Reason = ReasonExists
		logger.Info("instance exists, skipping",
			logging.String("source", dir),
			logging.String("target", placement.Target),
		)
		return placement, nil
	} else if !os.IsNotExist(err) {
		return placement, fmt.Errorf("stat target %s: %w", placement.Target, err)
	}

	var err error
	if move {
		placement.Action = ActionMoved
		placement.Bytes, err = fileutil.MoveTree(dir, placement.Target)
	} else {
		placement.Action = ActionCopied
		placement.Bytes, err = fileutil.CopyTree(dir, placement.Target)
	}
	if err != nil {
		_ = os.RemoveAll(placement.Target)
		return placement, fmt.Errorf("%s %s to %s: %w", placement.Action, dir, placement.Target, err)
	}

	logger.Info("asset directory placed",
		logging.String("source", dir),
		logging.String("target", placement.Target),
		logging.String("action", string(placement.Action)),
		logging.Size("size", placement.Bytes),
	)
	return placement, nil
}

// within reports whether path equals dir or sits below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func holdsAnother(dir string, dirs []string) bool {
	for _, other := range dirs {
		if other != dir && within(other, dir) {
			return true
		}
	}
	return false
}
