// Package discovery walks directory trees for archives and model asset files.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Matcher reports whether a slash-separated path relative to the scan root is
// excluded. *ignore.GitIgnore satisfies it.
type Matcher interface {
	MatchesPath(path string) bool
}

// Options controls which files Scan classifies. Extensions are lowercase with
// a leading dot. Prune lists directories that are skipped entirely.
type Options struct {
	ArchiveExtensions []string
	AssetExtensions   []string
	Prune             []string
	// Ignore, when set, excludes matching files and directories.
	Ignore Matcher
}

// Result holds the sorted archive and asset file paths found by Scan.
type Result struct {
	Archives []string
	Assets   []string
}

// Empty reports whether nothing was found.
func (r Result) Empty() bool {
	return len(r.Archives) == 0 && len(r.Assets) == 0
}

// Scan walks root, classifies files by case-insensitive extension, and returns
// the paths sorted lexicographically for deterministic processing order.
func Scan(root string, opts Options) (Result, error) {
	archiveExts := extensionSet(opts.ArchiveExtensions)
	assetExts := extensionSet(opts.AssetExtensions)
	prune := make(map[string]struct{}, len(opts.Prune))
	for _, dir := range opts.Prune {
		if dir == "" {
			continue
		}
		prune[filepath.Clean(dir)] = struct{}{}
	}

	var result Result
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, ok := prune[filepath.Clean(path)]; ok {
				return filepath.SkipDir
			}
			if ignored(opts.Ignore, root, path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || ignored(opts.Ignore, root, path, false) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		switch {
		case archiveExts[ext]:
			result.Archives = append(result.Archives, path)
		case assetExts[ext]:
			result.Assets = append(result.Assets, path)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	sort.Strings(result.Archives)
	sort.Strings(result.Assets)
	return result, nil
}

// AssetDirectories returns the unique directories containing the given asset
// files, sorted so that a directory precedes the asset directories nested in it.
// Nested asset directories are kept: each one is an instance of its own.
func AssetDirectories(files []string) []string {
	set := make(map[string]struct{}, len(files))
	for _, file := range files {
		set[filepath.Dir(filepath.Clean(file))] = struct{}{}
	}
	dirs := make([]string, 0, len(set))
	for dir := range set {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

func ignored(m Matcher, root, path string, dir bool) bool {
	if m == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir {
		return m.MatchesPath(rel) || m.MatchesPath(rel+"/")
	}
	return m.MatchesPath(rel)
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = true
	}
	return set
}
