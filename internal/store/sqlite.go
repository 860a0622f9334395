package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for rank-run history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	// Run migrations
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Store initialized successfully", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// CreateRankRun inserts a new RankRun and sets its ID
func (s *Store) CreateRankRun(run *RankRun) error {
	const query = `
		INSERT INTO rank_runs (
			correlation_id, start_time, end_time, source, status,
			exit_code, command, countries, mirrorlist_path, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.CorrelationID, run.StartTime, run.EndTime, run.Source, run.Status,
		run.ExitCode, run.Command, run.Countries, run.MirrorlistPath, run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rank run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateRankRun updates an existing RankRun by ID
func (s *Store) UpdateRankRun(run *RankRun) error {
	const query = `
		UPDATE rank_runs SET
			correlation_id = ?, start_time = ?, end_time = ?, source = ?,
			status = ?, exit_code = ?, command = ?, countries = ?,
			mirrorlist_path = ?, error_message = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.CorrelationID, run.StartTime, run.EndTime, run.Source,
		run.Status, run.ExitCode, run.Command, run.Countries,
		run.MirrorlistPath, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rank run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("rank run not found: %d", run.ID)
	}

	return nil
}

// GetRankRun retrieves a RankRun by ID
func (s *Store) GetRankRun(id int64) (*RankRun, error) {
	const query = `
		SELECT id, correlation_id, start_time, end_time, source, status,
			exit_code, command, countries, mirrorlist_path, error_message
		FROM rank_runs WHERE id = ?
	`

	run := &RankRun{}
	err := s.db.QueryRow(query, id).Scan(
		&run.ID, &run.CorrelationID, &run.StartTime, &run.EndTime,
		&run.Source, &run.Status, &run.ExitCode, &run.Command,
		&run.Countries, &run.MirrorlistPath, &run.ErrorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rank run not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rank run: %w", err)
	}

	return run, nil
}

// ListRankRuns retrieves the most recent rank runs, newest first.
// A limit of 0 returns all runs.
func (s *Store) ListRankRuns(limit int) ([]RankRun, error) {
	query := `
		SELECT id, correlation_id, start_time, end_time, source, status,
			exit_code, command, countries, mirrorlist_path, error_message
		FROM rank_runs ORDER BY start_time DESC
	`

	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rank runs: %w", err)
	}
	defer rows.Close()

	var runs []RankRun
	for rows.Next() {
		var run RankRun
		if err := rows.Scan(
			&run.ID, &run.CorrelationID, &run.StartTime, &run.EndTime,
			&run.Source, &run.Status, &run.ExitCode, &run.Command,
			&run.Countries, &run.MirrorlistPath, &run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rank run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rank runs: %w", err)
	}

	return runs, nil
}

// LastRankRun returns the most recent rank run, or nil if none exist.
func (s *Store) LastRankRun() (*RankRun, error) {
	runs, err := s.ListRankRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
