package analyzer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// skipDirs are directories that never contain routable application code.
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"storage":      true,
	"tests":        true,
	"database":     true,
}

// LoadDir reads every PHP source file under root, skipping vendor and other
// non-application directories.
func LoadDir(root string) ([]SourceFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			base := d.Name()
			if skipDirs[base] || (strings.HasPrefix(base, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".php") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, SourceFile{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
