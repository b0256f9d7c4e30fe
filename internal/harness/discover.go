package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// Discover expands paths into scenario files. Files are taken as given;
// directories are walked for .yaml and .yml files. The result is sorted
// and free of duplicates.
func Discover(paths ...string) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, &ScenarioNotFoundError{Path: root}
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan scenarios: %w", err)
		}
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
