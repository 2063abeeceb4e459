package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"

	"modelsort/internal/logging"
)

// ErrUnsafeEntry marks a zip entry whose path resolves outside the extraction
// directory.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// Tree describes one extracted archive.
type Tree struct {
	// Archive is the zip file the tree came from.
	Archive string
	// Root is the directory holding the extracted entries.
	Root string
	// Depth is 0 for archives found in the source tree and grows by one per
	// level of nesting.
	Depth   int
	Entries int
	Bytes   int64
	// Nested and Assets are filled in by Expander after scanning Root.
	Nested []string
	Assets []string
}

// Extractor unpacks single zip archives.
type Extractor struct {
	names  encoding.Encoding
	logger *slog.Logger
}

// NewExtractor builds an extractor that decodes legacy entry names with the
// named encoding (cp437, shift_jis, euc-jp or utf-8).
func NewExtractor(filenameEncoding string, logger *slog.Logger) (*Extractor, error) {
	enc, err := decoderFor(filenameEncoding)
	if err != nil {
		return nil, err
	}
	return &Extractor{names: enc, logger: logging.NewComponentLogger(logger, "archive")}, nil
}

// Stem returns the archive file name without its extension.
func Stem(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Extract unpacks archivePath into parent/<stem>. The directory must not exist
// yet. Entries that appear twice overwrite earlier copies. The source archive
// is only read.
func (e *Extractor) Extract(ctx context.Context, archivePath, parent string) (Tree, error) {
	tree := Tree{Archive: archivePath, Root: filepath.Join(parent, Stem(archivePath))}

	reader, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		reader.Close()
		return tree, fmt.Errorf("%w: %s contains paths outside the archive root", ErrUnsafeEntry, archivePath)
	}
	if err != nil {
		return tree, fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(parent, 0o755); err != nil {
		return tree, fmt.Errorf("create workspace slot: %w", err)
	}
	if err := os.Mkdir(tree.Root, 0o755); err != nil {
		return tree, fmt.Errorf("create extraction directory: %w", err)
	}

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return tree, err
		}
		written, err := e.extractFile(file, tree.Root)
		if err != nil {
			return tree, fmt.Errorf("extract %s from %s: %w", file.Name, archivePath, err)
		}
		tree.Entries++
		tree.Bytes += written
	}

	e.logger.Debug("archive extracted",
		logging.String("archive", archivePath),
		logging.String("root", tree.Root),
		logging.Int("entries", tree.Entries),
		logging.Int64("bytes", tree.Bytes),
	)
	return tree, nil
}

func (e *Extractor) extractFile(file *zip.File, destDir string) (int64, error) {
	name := decodeName(e.names, file.Name, file.NonUTF8)
	destPath, err := entryPath(destDir, name)
	if err != nil {
		return 0, err
	}
	if destPath == "" {
		return 0, nil
	}

	mode := file.Mode()
	if mode&fs.ModeSymlink != 0 {
		e.logger.Debug("skipping symlink entry", logging.String("entry", name))
		return 0, nil
	}

	if mode.IsDir() || strings.HasSuffix(name, "/") {
		return 0, os.MkdirAll(destPath, dirPerm(mode))
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("create parent directories %s: %w", filepath.Dir(destPath), err)
	}

	rc, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm(mode))
	if err != nil {
		return 0, fmt.Errorf("create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	written, err := io.Copy(destFile, rc)
	if err != nil {
		return written, fmt.Errorf("copy entry content to %s: %w", destPath, err)
	}
	return written, destFile.Close()
}

// entryPath maps an entry name onto destDir. It returns "" for entries that
// name the root itself and ErrUnsafeEntry for anything escaping destDir.
func entryPath(destDir, name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	trimmed := strings.TrimSuffix(slashed, "/")
	if trimmed == "" || trimmed == "." {
		return "", nil
	}
	local := filepath.FromSlash(trimmed)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	destPath := filepath.Join(destDir, local)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	return destPath, nil
}

func filePerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	return perm | 0o600
}

func dirPerm(mode fs.FileMode) fs.FileMode {
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o755
	}
	return perm | 0o700
}
