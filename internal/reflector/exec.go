package reflector

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

const (
	// DefaultBinary is the reflector executable name resolved via PATH.
	DefaultBinary = "reflector"

	// DefaultTimeout bounds a single ranking run. Reflector talks to many
	// mirrors, but a run that takes longer than this is not worth waiting
	// for during an installation.
	DefaultTimeout = 30 * time.Second

	maxStderrBytes = 2048
)

// Outcome classifies the result of a ranking run.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeToolMissing Outcome = "tool_missing"
	OutcomeFailed      Outcome = "failed"
	OutcomeTimedOut    Outcome = "timed_out"
)

// Result is the structured outcome of one execution attempt. It is consumed
// by the apply engine and never persisted directly.
type Result struct {
	Outcome        Outcome
	MirrorlistPath string // set on success; written by reflector's own --save
	ExitCode       int
	Stderr         string
}

// Runner executes the reflector binary as a subprocess with a hard
// wall-clock timeout. Runs are single-flight per save path: a second run
// against the same target waits for the first to finish, so two processes
// never race on the same --save file.
type Runner struct {
	binary   string
	timeout  time.Duration
	logger   *slog.Logger
	lookPath func(string) (string, error)

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewRunner creates a Runner with the default binary and timeout.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		binary:   DefaultBinary,
		timeout:  DefaultTimeout,
		logger:   logger,
		lookPath: exec.LookPath,
		inflight: make(map[string]*sync.Mutex),
	}
}

// SetBinary overrides the executable name (primarily for tests).
func (r *Runner) SetBinary(binary string) { r.binary = binary }

// SetTimeout overrides the wall-clock ceiling for a run.
func (r *Runner) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// pathLock returns the mutex guarding the given save path.
func (r *Runner) pathLock(savePath string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.inflight[savePath]
	if !ok {
		l = &sync.Mutex{}
		r.inflight[savePath] = l
	}
	return l
}

// Run spawns exactly one reflector subprocess with the given arguments.
// If the binary cannot be resolved no process is spawned and ToolMissing is
// returned. Cancellation of ctx terminates the child promptly.
func (r *Runner) Run(ctx context.Context, args []string, savePath string) Result {
	lock := r.pathLock(savePath)
	lock.Lock()
	defer lock.Unlock()

	binPath, err := r.lookPath(r.binary)
	if err != nil {
		r.logger.Warn("ranking tool not found", "binary", r.binary)
		return Result{Outcome: OutcomeToolMissing}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("running ranking tool", "command", CommandString(r.binary, args), "timeout", r.timeout)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, binPath, args...)
	cmd.Stderr = &stderr
	// Without WaitDelay, Wait blocks past cancellation while an orphaned
	// grandchild holds the stderr pipe open.
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("ranking tool timed out", "timeout", r.timeout, "elapsed", elapsed)
		return Result{Outcome: OutcomeTimedOut, Stderr: truncate(stderr.Bytes())}
	}

	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		r.logger.Warn("ranking tool failed",
			"exit_code", exitCode, "elapsed", elapsed, "stderr", truncate(stderr.Bytes()))
		return Result{
			Outcome:  OutcomeFailed,
			ExitCode: exitCode,
			Stderr:   truncate(stderr.Bytes()),
		}
	}

	r.logger.Info("ranking tool completed", "save_path", savePath, "elapsed", elapsed)
	return Result{Outcome: OutcomeSuccess, MirrorlistPath: savePath}
}

// truncate caps captured stderr so a noisy run cannot bloat logs or records.
func truncate(b []byte) string {
	if len(b) > maxStderrBytes {
		return string(b[:maxStderrBytes])
	}
	return string(b)
}
