package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"modelsort/internal/discovery"
	"modelsort/internal/logging"
)

// ErrTooDeep is returned when archives nest deeper than the configured limit.
var ErrTooDeep = errors.New("archive nesting too deep")

// Entry is a pending archive on the worklist.
type Entry struct {
	Path  string
	Depth int
}

// Expander extracts a set of archives and every archive nested within them.
type Expander struct {
	Extractor         *Extractor
	ArchiveExtensions []string
	AssetExtensions   []string
	MaxDepth          int
	Logger            *slog.Logger
	// OnExtracted, when set, is called once per successfully extracted tree.
	OnExtracted func(Tree)

	slots int
}

// Expand extracts archives into numbered slots under workspace using an
// explicit stack, so nested archives are handled without recursion. Each
// returned tree lists the nested archives and asset files found directly in
// it. The first error stops the expansion.
func (x *Expander) Expand(ctx context.Context, archives []string, workspace string) ([]Tree, error) {
	if x.Extractor == nil {
		return nil, errors.New("expander: extractor is required")
	}
	logger := logging.NewComponentLogger(x.Logger, "expander")

	stack := make([]Entry, 0, len(archives))
	for i := len(archives) - 1; i >= 0; i-- {
		stack = append(stack, Entry{Path: archives[i]})
	}

	var trees []Tree
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return trees, err
		}
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if x.MaxDepth > 0 && entry.Depth > x.MaxDepth {
			return trees, fmt.Errorf("%w: %s at depth %d (max %d)", ErrTooDeep, entry.Path, entry.Depth, x.MaxDepth)
		}

		x.slots++
		slot := filepath.Join(workspace, fmt.Sprintf("%04d", x.slots))
		tree, err := x.Extractor.Extract(ctx, entry.Path, slot)
		if err != nil {
			return trees, err
		}
		tree.Depth = entry.Depth

		found, err := discovery.Scan(tree.Root, discovery.Options{
			ArchiveExtensions: x.ArchiveExtensions,
			AssetExtensions:   x.AssetExtensions,
		})
		if err != nil {
			return trees, fmt.Errorf("scan extracted tree %s: %w", tree.Root, err)
		}
		tree.Nested = found.Archives
		tree.Assets = found.Assets
		for i := len(found.Archives) - 1; i >= 0; i-- {
			stack = append(stack, Entry{Path: found.Archives[i], Depth: entry.Depth + 1})
		}

		logger.Debug("archive expanded",
			logging.String("archive", entry.Path),
			logging.Int("depth", entry.Depth),
			logging.Int("nested", len(found.Archives)),
			logging.Int("assets", len(found.Assets)),
		)
		trees = append(trees, tree)
		if x.OnExtracted != nil {
			x.OnExtracted(tree)
		}
	}
	return trees, nil
}
