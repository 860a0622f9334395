// Package mirrorlist renders and atomically writes pacman mirrorlist files.
package mirrorlist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/safety"
)

// ErrNoRegions indicates there was nothing to write: the manual region set
// was empty. This is a caller-configuration error, not something the writer
// can resolve.
var ErrNoRegions = errors.New("no mirror regions to write")

// Render produces the mirrorlist text for the given regions: a "## Name"
// header per region followed by one "Server = <url>" line per mirror.
func Render(regions []mirror.Region) (string, error) {
	total := 0
	for _, r := range regions {
		total += len(r.URLs)
	}
	if total == 0 {
		return "", ErrNoRegions
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Generated by pacmirror on %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, region := range regions {
		if len(region.URLs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", region.Name)
		for _, url := range region.URLs {
			fmt.Fprintf(&b, "Server = %s\n", url)
		}
	}

	return b.String(), nil
}

// Write renders the regions and writes the result to path atomically: the
// content goes to a temp file in the target directory first, then a rename
// puts it in place. A crash mid-write never leaves a half-written or empty
// mirrorlist, and readers only ever observe a complete file.
func Write(path string, regions []mirror.Region) error {
	target, err := safety.ValidateTargetPath(path)
	if err != nil {
		return fmt.Errorf("invalid mirrorlist target: %w", err)
	}

	content, err := Render(regions)
	if err != nil {
		return err
	}

	dir := filepath.Dir(target)
	tmp, err := os.CreateTemp(dir, ".mirrorlist-*")
	if err != nil {
		return fmt.Errorf("failed to create temp mirrorlist: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.WriteString(content)
	if writeErr == nil {
		writeErr = tmp.Sync()
	}
	closeErr := tmp.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp mirrorlist: %w", writeErr)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mirrorlist permissions: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move mirrorlist into place: %w", err)
	}

	return nil
}
