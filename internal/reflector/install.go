package reflector

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

const installTimeout = 120 * time.Second

// Installer ensures the reflector package is present, installing it through
// pacman when it is missing. A failed install is not retried; the caller
// falls back to the manual mirrorlist instead.
type Installer struct {
	logger       *slog.Logger
	toolBinary   string
	pacmanBinary string
	lookPath     func(string) (string, error)
}

// NewInstaller creates an Installer for the default reflector binary.
func NewInstaller(logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{
		logger:       logger,
		toolBinary:   DefaultBinary,
		pacmanBinary: "pacman",
		lookPath:     exec.LookPath,
	}
}

// SetToolBinary overrides the tool executable name (primarily for tests).
func (i *Installer) SetToolBinary(binary string) { i.toolBinary = binary }

// SetPacmanBinary overrides the package manager executable name.
func (i *Installer) SetPacmanBinary(binary string) { i.pacmanBinary = binary }

// EnsureInstalled reports whether the ranking tool is available, attempting
// a single pacman install if it is not already on PATH.
func (i *Installer) EnsureInstalled(ctx context.Context) bool {
	if _, err := i.lookPath(i.toolBinary); err == nil {
		return true
	}

	pacman, err := i.lookPath(i.pacmanBinary)
	if err != nil {
		i.logger.Warn("package manager not found, cannot install ranking tool",
			"pacman", i.pacmanBinary)
		return false
	}

	i.logger.Info("installing ranking tool", "package", DefaultBinary)

	installCtx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	cmd := exec.CommandContext(installCtx, pacman, "-Sy", "--noconfirm", DefaultBinary)
	output, err := cmd.CombinedOutput()
	if err != nil {
		i.logger.Warn("failed to install ranking tool", "error", err, "output", string(output))
		return false
	}

	if _, err := i.lookPath(i.toolBinary); err != nil {
		i.logger.Warn("ranking tool still missing after install", "binary", i.toolBinary)
		return false
	}

	i.logger.Info("ranking tool installed", "package", DefaultBinary)
	return true
}
