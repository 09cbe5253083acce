package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/entity"
)

const extractJobTable = "extract_job"

var extractJobColumns = []string{
	"id", "doc_class", "source_path", "languages", "status", "error",
	"worker_id", "text_length", "queued_at", "started_at", "finished_at",
}

// TEXT and BIGINT mean the same thing to sqlite and Postgres.
const extractJobDDL = `CREATE TABLE IF NOT EXISTS extract_job (
	id          TEXT NOT NULL PRIMARY KEY,
	doc_class   TEXT NOT NULL,
	source_path TEXT NOT NULL,
	languages   TEXT NOT NULL,
	status      TEXT NOT NULL,
	error       TEXT,
	worker_id   TEXT,
	text_length BIGINT NOT NULL,
	queued_at   BIGINT NOT NULL,
	started_at  BIGINT,
	finished_at BIGINT
)`

// ExtractJobRepository is the job ledger: one row per dispatched extraction,
// upserted at every status transition.
type ExtractJobRepository interface {
	Migrate(ctx context.Context) error
	Record(ctx context.Context, job entity.ExtractJob) error
	ListRecent(ctx context.Context, limit int) ([]entity.ExtractJob, error)
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, extractJobDDL); err != nil {
		r.log.Error("extract_job migrate failed", "error", err)
		return fmt.Errorf("create %s: %w", extractJobTable, err)
	}
	return nil
}

func (r *extractJobRepo) Record(ctx context.Context, job entity.ExtractJob) error {
	langs, err := json.Marshal(nonNil(job.Languages))
	if err != nil {
		return err
	}
	query, args := entsql.Dialect(r.db.Dialect).
		Insert(extractJobTable).
		Columns(extractJobColumns...).
		Values(
			job.ID.String(), job.Class, job.SourcePath, string(langs), string(job.Status), job.Error,
			job.WorkerID, job.TextLength, job.QueuedAt.UnixNano(), unixOrNil(job.StartedAt), unixOrNil(job.FinishedAt),
		).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("extract_job upsert failed", "job_id", job.ID, "status", job.Status, "error", err)
		return err
	}
	r.log.Debug("extract_job recorded", "job_id", job.ID, "status", job.Status)
	return nil
}

func (r *extractJobRepo) ListRecent(ctx context.Context, limit int) ([]entity.ExtractJob, error) {
	if limit <= 0 {
		limit = 50
	}
	d := entsql.Dialect(r.db.Dialect)
	query, args := d.Select(extractJobColumns...).
		From(d.Table(extractJobTable)).
		OrderBy(entsql.Desc("queued_at")).
		Limit(limit).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("extract_job list failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var jobs []entity.ExtractJob
	for rows.Next() {
		var (
			id, status, langs string
			errMsg, workerID  sql.NullString
			textLen, queued   int64
			started, finished sql.NullInt64
			job               entity.ExtractJob
		)
		if err := rows.Scan(&id, &job.Class, &job.SourcePath, &langs, &status, &errMsg,
			&workerID, &textLen, &queued, &started, &finished); err != nil {
			return nil, err
		}
		if job.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("extract_job %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(langs), &job.Languages); err != nil {
			return nil, fmt.Errorf("extract_job %s languages: %w", id, err)
		}
		job.Status = constants.JobStatus(status)
		job.Error = errMsg.String
		job.WorkerID = workerID.String
		job.TextLength = int(textLen)
		job.QueuedAt = time.Unix(0, queued).UTC()
		job.StartedAt = timeOrNil(started)
		job.FinishedAt = timeOrNil(finished)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
