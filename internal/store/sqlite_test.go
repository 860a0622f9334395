package store

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	s, err := New(":memory:", logger)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() *RankRun {
	return &RankRun{
		CorrelationID:  "11111111-2222-3333-4444-555555555555",
		StartTime:      time.Now().UTC(),
		Source:         "ranked",
		Status:         "running",
		Command:        "reflector --verbose --country Brazil,Chile --protocol https --age 12 --latest 20 --sort rate --save /etc/pacman.d/mirrorlist",
		Countries:      "Brazil,Chile",
		MirrorlistPath: "/etc/pacman.d/mirrorlist",
	}
}

func TestCreateAndGetRankRun(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	if err := s.CreateRankRun(run); err != nil {
		t.Fatalf("CreateRankRun() failed: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("CreateRankRun() did not set ID")
	}

	got, err := s.GetRankRun(run.ID)
	if err != nil {
		t.Fatalf("GetRankRun() failed: %v", err)
	}
	if got.CorrelationID != run.CorrelationID {
		t.Errorf("correlation_id = %q, want %q", got.CorrelationID, run.CorrelationID)
	}
	if got.Source != "ranked" || got.Status != "running" {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Countries != "Brazil,Chile" {
		t.Errorf("countries = %q", got.Countries)
	}
}

func TestGetRankRunNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetRankRun(42); err == nil {
		t.Error("expected error for missing rank run")
	}
}

func TestUpdateRankRun(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	if err := s.CreateRankRun(run); err != nil {
		t.Fatalf("CreateRankRun() failed: %v", err)
	}

	run.Status = "failed"
	run.ExitCode = 3
	run.EndTime = time.Now().UTC()
	run.ErrorMessage = "ranking tool exited with code 3"
	if err := s.UpdateRankRun(run); err != nil {
		t.Fatalf("UpdateRankRun() failed: %v", err)
	}

	got, err := s.GetRankRun(run.ID)
	if err != nil {
		t.Fatalf("GetRankRun() failed: %v", err)
	}
	if got.Status != "failed" || got.ExitCode != 3 {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.ErrorMessage != "ranking tool exited with code 3" {
		t.Errorf("error_message = %q", got.ErrorMessage)
	}
}

func TestUpdateRankRunNotFound(t *testing.T) {
	s := newTestStore(t)

	run := sampleRun()
	run.ID = 999
	if err := s.UpdateRankRun(run); err == nil {
		t.Error("expected error updating a missing rank run")
	}
}

func TestListRankRuns(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		run := sampleRun()
		run.StartTime = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateRankRun(run); err != nil {
			t.Fatalf("CreateRankRun() failed: %v", err)
		}
	}

	runs, err := s.ListRankRuns(0)
	if err != nil {
		t.Fatalf("ListRankRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if !runs[0].StartTime.After(runs[2].StartTime) {
		t.Error("runs not ordered newest first")
	}

	limited, err := s.ListRankRuns(2)
	if err != nil {
		t.Fatalf("ListRankRuns(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

func TestLastRankRun(t *testing.T) {
	s := newTestStore(t)

	last, err := s.LastRankRun()
	if err != nil {
		t.Fatalf("LastRankRun() failed: %v", err)
	}
	if last != nil {
		t.Errorf("expected nil for empty store, got %+v", last)
	}

	older := sampleRun()
	older.StartTime = time.Now().UTC().Add(-time.Hour)
	if err := s.CreateRankRun(older); err != nil {
		t.Fatalf("CreateRankRun() failed: %v", err)
	}

	newest := sampleRun()
	newest.Source = "fallback"
	if err := s.CreateRankRun(newest); err != nil {
		t.Fatalf("CreateRankRun() failed: %v", err)
	}

	last, err = s.LastRankRun()
	if err != nil {
		t.Fatalf("LastRankRun() failed: %v", err)
	}
	if last == nil || last.Source != "fallback" {
		t.Errorf("unexpected last run: %+v", last)
	}
}
