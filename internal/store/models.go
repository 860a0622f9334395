package store

import "time"

// RankRun records one mirrorlist generation attempt.
type RankRun struct {
	ID             int64
	CorrelationID  string // UUID for log correlation
	StartTime      time.Time
	EndTime        time.Time
	Source         string // "ranked" or "fallback"
	Status         string // "running", "success", "failed"
	ExitCode       int
	Command        string // recorded reflector invocation, empty on pure fallback runs
	Countries      string // comma-separated, insertion order
	MirrorlistPath string
	ErrorMessage   string
}
