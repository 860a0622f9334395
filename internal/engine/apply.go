// Package engine orchestrates mirrorlist generation: it validates the
// mirror configuration, delegates ranking to the external reflector tool,
// and guarantees a usable mirrorlist exists when it finishes, falling back
// to the manually selected regions when ranking is unavailable.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/mirrorlist"
	"github.com/pacmirror/pacmirror/internal/reflector"
	"github.com/pacmirror/pacmirror/internal/store"
)

// PathTaken identifies which path produced the final mirrorlist.
type PathTaken string

const (
	PathRanked   PathTaken = "ranked"
	PathFallback PathTaken = "fallback"
)

// ToolRunner executes the ranking tool. Satisfied by *reflector.Runner.
type ToolRunner interface {
	Run(ctx context.Context, args []string, savePath string) reflector.Result
}

// ToolInstaller ensures the ranking tool is present. Satisfied by
// *reflector.Installer.
type ToolInstaller interface {
	EnsureInstalled(ctx context.Context) bool
}

// StatusSource supplies the country vocabulary and fallback ordering probe.
// Satisfied by *mirror.StatusClient.
type StatusSource interface {
	Countries(ctx context.Context) ([]string, error)
	ProbeRank(ctx context.Context, urls []string) []mirror.ProbeResult
}

// ApplyResult reports the outcome of a completed apply.
type ApplyResult struct {
	Path           PathTaken
	MirrorlistPath string
	Diagnostic     string
	RunID          int64
}

// Manager drives the apply workflow. One synchronous workflow runs per
// installation session; concurrent ranking against the same target path is
// serialized by the runner's single-flight lock.
type Manager struct {
	runner        ToolRunner
	installer     ToolInstaller
	status        StatusSource
	store         *store.Store
	logger        *slog.Logger
	targetPath    string
	probeFallback bool
}

// NewManager creates a Manager writing to targetPath.
func NewManager(
	runner ToolRunner,
	installer ToolInstaller,
	status StatusSource,
	st *store.Store,
	targetPath string,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		runner:     runner,
		installer:  installer,
		status:     status,
		store:      st,
		logger:     logger,
		targetPath: targetPath,
	}
}

// SetProbeFallback enables latency-ordering of fallback mirrors.
func (m *Manager) SetProbeFallback(enabled bool) { m.probeFallback = enabled }

// Apply runs the full workflow for the given configuration. Ranking-path
// failures (tool missing, nonzero exit, timeout) are converted into the
// fallback path; only an invalid configuration or a failure to write any
// mirrorlist at all is returned as an error.
func (m *Manager) Apply(ctx context.Context, cfg mirror.Config) (*ApplyResult, error) {
	run := &store.RankRun{
		CorrelationID: uuid.New().String(),
		StartTime:     time.Now(),
		Status:        "running",
		Countries:     strings.Join(cfg.Reflector.Countries, ","),
	}
	if err := m.store.CreateRankRun(run); err != nil {
		m.logger.Error("failed to create rank run record", "error", err)
		return nil, fmt.Errorf("failed to create rank run: %w", err)
	}

	m.logger.Info("apply started",
		"correlation_id", run.CorrelationID,
		"reflector_enabled", cfg.Reflector.Enabled,
		"regions", len(cfg.Regions),
	)

	diagnostic := "reflector disabled"

	if cfg.Reflector.Enabled {
		validated, err := m.validate(ctx, cfg.Reflector)
		if err != nil {
			m.finishRun(run, "failed", "", err.Error())
			return nil, err
		}

		result, args := m.rank(ctx, validated)
		run.Command = reflector.CommandString(reflector.DefaultBinary, args)
		run.ExitCode = result.ExitCode

		if result.Outcome == reflector.OutcomeSuccess {
			m.finishRun(run, "success", string(PathRanked), "")
			m.logger.Info("mirrorlist ranked", "path", result.MirrorlistPath, "correlation_id", run.CorrelationID)
			return &ApplyResult{
				Path:           PathRanked,
				MirrorlistPath: result.MirrorlistPath,
				RunID:          run.ID,
			}, nil
		}

		diagnostic = rankDiagnostic(result)
		m.logger.Warn("ranking unavailable, falling back to manual mirrorlist",
			"reason", diagnostic, "correlation_id", run.CorrelationID)
	}

	if err := m.writeFallback(ctx, cfg); err != nil {
		m.finishRun(run, "failed", string(PathFallback), err.Error())
		return nil, err
	}

	m.finishRun(run, "success", string(PathFallback), diagnostic)
	m.logger.Info("mirrorlist written from manual regions",
		"path", m.targetPath, "correlation_id", run.CorrelationID)

	return &ApplyResult{
		Path:           PathFallback,
		MirrorlistPath: m.targetPath,
		Diagnostic:     diagnostic,
		RunID:          run.ID,
	}, nil
}

// validate checks the reflector configuration against the country
// vocabulary. An unavailable vocabulary is not fatal: validation proceeds
// without the country check.
func (m *Manager) validate(ctx context.Context, cfg mirror.ReflectorConfig) (mirror.ValidatedReflectorConfig, error) {
	countries, err := m.status.Countries(ctx)
	if err != nil {
		m.logger.Warn("country vocabulary unavailable, skipping country check", "error", err)
		countries = nil
	}
	return mirror.Validate(cfg, countries)
}

// rank attempts the ranked path: ensure the tool exists, then run it.
func (m *Manager) rank(ctx context.Context, validated mirror.ValidatedReflectorConfig) (reflector.Result, []string) {
	args := reflector.BuildArgs(validated, m.targetPath)

	if !m.installer.EnsureInstalled(ctx) {
		return reflector.Result{Outcome: reflector.OutcomeToolMissing}, args
	}

	return m.runner.Run(ctx, args, m.targetPath), args
}

// writeFallback writes the manual region list atomically, optionally
// latency-ordering the mirrors within each region first.
func (m *Manager) writeFallback(ctx context.Context, cfg mirror.Config) error {
	regions := cfg.Regions

	if m.probeFallback {
		ordered := make([]mirror.Region, len(regions))
		for i, region := range regions {
			results := m.status.ProbeRank(ctx, region.URLs)
			urls := make([]string, len(results))
			for j, r := range results {
				urls[j] = r.URL
			}
			ordered[i] = mirror.Region{Name: region.Name, URLs: urls}
		}
		regions = ordered
	}

	if err := mirrorlist.Write(m.targetPath, regions); err != nil {
		return fmt.Errorf("failed to write fallback mirrorlist: %w", err)
	}
	return nil
}

// finishRun stamps the end time and final status on a run record.
func (m *Manager) finishRun(run *store.RankRun, status, source, errMsg string) {
	run.EndTime = time.Now()
	run.Status = status
	run.Source = source
	run.ErrorMessage = errMsg
	run.MirrorlistPath = m.targetPath
	if err := m.store.UpdateRankRun(run); err != nil {
		m.logger.Error("failed to update rank run record", "error", err)
	}
}

// rankDiagnostic renders a non-success execution result for humans.
func rankDiagnostic(r reflector.Result) string {
	switch r.Outcome {
	case reflector.OutcomeToolMissing:
		return "ranking tool not installed"
	case reflector.OutcomeTimedOut:
		return "ranking tool timed out"
	case reflector.OutcomeFailed:
		msg := fmt.Sprintf("ranking tool exited with code %d", r.ExitCode)
		if r.Stderr != "" {
			msg += ": " + strings.TrimSpace(r.Stderr)
		}
		return msg
	default:
		return string(r.Outcome)
	}
}
