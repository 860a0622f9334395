package safety

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidateTargetPath checks that p is usable as the mirrorlist write target:
// a non-empty absolute path whose parent directory exists, and which is not
// itself a directory. The atomic-rename write discipline requires the parent
// directory to exist up front.
func ValidateTargetPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("target path is empty")
	}

	clean := filepath.Clean(p)
	if !filepath.IsAbs(clean) {
		return "", fmt.Errorf("target path must be absolute: %q", p)
	}

	if info, err := os.Stat(clean); err == nil && info.IsDir() {
		return "", fmt.Errorf("target path is a directory: %q", clean)
	}

	parent := filepath.Dir(clean)
	info, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("target directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("target parent is not a directory: %q", parent)
	}

	return clean, nil
}
