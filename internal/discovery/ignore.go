package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// LoadIgnore compiles the gitignore-style file name found in root. It returns
// nil when name is empty or the file does not exist.
func LoadIgnore(root, name string) (*ignore.GitIgnore, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	path := filepath.Join(root, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat ignore file: %w", err)
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("compile ignore file %s: %w", path, err)
	}
	return matcher, nil
}
