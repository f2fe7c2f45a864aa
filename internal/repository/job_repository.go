package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const jobSchema = `
	CREATE TABLE IF NOT EXISTS stitch_jobs (
		job_id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		frame_urls TEXT NOT NULL,
		frame_count INTEGER NOT NULL,
		dropped_frames TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		shifts TEXT NOT NULL,
		output_format TEXT NOT NULL,
		output_url TEXT,
		error TEXT,
		processing_time_sec DOUBLE NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stitch_jobs_created ON stitch_jobs(created_at);
`

// SQLiteJobRepository stores stitch job history in a SQLite database
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository opens (or creates) the job database at path.
// ":memory:" gives a private in-process database.
func NewSQLiteJobRepository(path string) (*SQLiteJobRepository, error) {
	db, err := sql.Open("sqlite", jobDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %w", err)
	}
	// every connection to :memory: is a separate database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(jobSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create job schema: %w", err)
	}
	return &SQLiteJobRepository{db: db}, nil
}

// jobDSN puts the pragmas in the DSN so the driver applies them to every
// pooled connection
func jobDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewJobID returns a fresh job identifier
func NewJobID() string {
	return uuid.NewString()
}

// SaveJob inserts or replaces a job, assigning an ID and creation time when missing
func (r *SQLiteJobRepository) SaveJob(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = NewJobID()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	frameURLs, err := json.Marshal(nonNilStrings(job.FrameURLs))
	if err != nil {
		return err
	}
	dropped, err := json.Marshal(nonNilInts(job.DroppedFrames))
	if err != nil {
		return err
	}
	shifts, err := json.Marshal(nonNilInts(job.Shifts))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO stitch_jobs (
			job_id, status, frame_urls, frame_count, dropped_frames, width, height,
			shifts, output_format, output_url, error, processing_time_sec, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), string(frameURLs), job.FrameCount, string(dropped),
		job.Width, job.Height, string(shifts), job.OutputFormat, job.OutputURL, job.Error,
		job.ProcessingTimeSec, job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob retrieves a job by ID, returning ErrJobNotFound when absent
func (r *SQLiteJobRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT job_id, status, frame_urls, frame_count, dropped_frames, width, height,
			shifts, output_format, output_url, error, processing_time_sec, created_at
		FROM stitch_jobs WHERE job_id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first
func (r *SQLiteJobRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_id, status, frame_urls, frame_count, dropped_frames, width, height,
			shifts, output_format, output_url, error, processing_time_sec, created_at
		FROM stitch_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Close closes the underlying database
func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*Job, error) {
	var (
		job                        Job
		status                     string
		frameURLs, dropped, shifts string
		outputURL, errMsg          sql.NullString
		createdAt                  int64
	)
	err := s.Scan(&job.ID, &status, &frameURLs, &job.FrameCount, &dropped, &job.Width, &job.Height,
		&shifts, &job.OutputFormat, &outputURL, &errMsg, &job.ProcessingTimeSec, &createdAt)
	if err != nil {
		return nil, err
	}

	job.Status = JobStatus(status)
	job.OutputURL = outputURL.String
	job.Error = errMsg.String
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(frameURLs), &job.FrameURLs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dropped), &job.DroppedFrames); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(shifts), &job.Shifts); err != nil {
		return nil, err
	}
	return &job, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
