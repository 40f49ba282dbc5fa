package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/constants"
	"github.com/joseph-ayodele/doctext/internal/entity"
)

var ErrNotFound = errors.New("extraction not found")

type ExtractionRepository interface {
	Start(ctx context.Context, rec entity.Extraction) (*entity.Extraction, error)
	FinishSuccess(ctx context.Context, id uuid.UUID, out entity.Outcome) error
	FinishFailure(ctx context.Context, id uuid.UUID, status constants.JobStatus, kind, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error)
	FindByHash(ctx context.Context, hash string) (*entity.Extraction, error)
	List(ctx context.Context, from, to *time.Time) ([]entity.Extraction, error)
}

type extractionRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractionRepository(db *DB, log *slog.Logger) ExtractionRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractionRepo{db: db, log: log}
}

var extractionColumns = []string{
	"id", "file_name", "file_path", "content_hash", "mime_type", "size_bytes", "status",
	"started_at", "finished_at", "source_kind", "strategy", "confidence", "page_count",
	"processing_time_ms", "text", "warnings", "error_kind", "error_message",
}

func (r *extractionRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

func (r *extractionRepo) Start(ctx context.Context, rec entity.Extraction) (*entity.Extraction, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = constants.JobStatusRunning
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	query, args := r.builder().Insert(extractionsTable).
		Columns("id", "file_name", "file_path", "content_hash", "mime_type", "size_bytes", "status", "started_at").
		Values(rec.ID.String(), rec.FileName, rec.FilePath, rec.ContentHash, rec.MIMEType, rec.SizeBytes, string(rec.Status), rec.StartedAt).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("extraction start failed", "file", rec.FileName, "error", err)
		return nil, err
	}
	r.log.Info("extraction started", "extraction_id", rec.ID, "file", rec.FileName, "status", rec.Status)
	return &rec, nil
}

func (r *extractionRepo) FinishSuccess(ctx context.Context, id uuid.UUID, out entity.Outcome) error {
	warnings, err := encodeWarnings(out.Warnings)
	if err != nil {
		return err
	}
	upd := r.builder().Update(extractionsTable).
		Set("status", string(constants.JobStatusOK)).
		Set("finished_at", time.Now().UTC()).
		Set("source_kind", out.SourceKind).
		Set("strategy", out.Strategy).
		Set("confidence", out.Confidence).
		Set("processing_time_ms", out.ProcessingTimeMs).
		Set("text", out.Text).
		Set("warnings", warnings)
	if out.PageCount > 0 {
		upd.Set("page_count", out.PageCount)
	}
	if err := r.update(ctx, id, upd); err != nil {
		r.log.Error("extraction finish(OK) failed", "extraction_id", id, "error", err)
		return err
	}
	r.log.Info("extraction finished (OK)", "extraction_id", id, "strategy", out.Strategy, "confidence", out.Confidence)
	return nil
}

func (r *extractionRepo) FinishFailure(ctx context.Context, id uuid.UUID, status constants.JobStatus, kind, message string) error {
	if status == "" {
		status = constants.JobStatusFailed
	}
	upd := r.builder().Update(extractionsTable).
		Set("status", string(status)).
		Set("finished_at", time.Now().UTC()).
		Set("error_kind", kind).
		Set("error_message", message)
	if err := r.update(ctx, id, upd); err != nil {
		r.log.Error("extraction finish(FAILED) failed", "extraction_id", id, "error", err)
		return err
	}
	r.log.Warn("extraction finished", "extraction_id", id, "status", status, "error_kind", kind, "error", message)
	return nil
}

func (r *extractionRepo) update(ctx context.Context, id uuid.UUID, upd *entsql.UpdateBuilder) error {
	query, args := upd.Where(entsql.EQ("id", id.String())).Query()
	var res sql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *extractionRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Extraction, error) {
	recs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("id", id.String())).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &recs[0], nil
}

// FindByHash returns the latest record for a content hash.
func (r *extractionRepo) FindByHash(ctx context.Context, hash string) (*entity.Extraction, error) {
	recs, err := r.query(ctx, func(s *entsql.Selector) {
		s.Where(entsql.EQ("content_hash", hash)).OrderBy(entsql.Desc("started_at")).Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNotFound
	}
	return &recs[0], nil
}

// List returns records started within [from, to), newest first. Nil bounds are open.
func (r *extractionRepo) List(ctx context.Context, from, to *time.Time) ([]entity.Extraction, error) {
	return r.query(ctx, func(s *entsql.Selector) {
		var preds []*entsql.Predicate
		if from != nil {
			preds = append(preds, entsql.GTE("started_at", from.UTC()))
		}
		if to != nil {
			preds = append(preds, entsql.LT("started_at", to.UTC()))
		}
		if len(preds) > 0 {
			s.Where(entsql.And(preds...))
		}
		s.OrderBy(entsql.Desc("started_at"))
	})
}

func (r *extractionRepo) query(ctx context.Context, shape func(*entsql.Selector)) ([]entity.Extraction, error) {
	b := r.builder()
	sel := b.Select(extractionColumns...).From(b.Table(extractionsTable))
	shape(sel)
	query, args := sel.Query()

	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Extraction
	for rows.Next() {
		rec, err := scanExtraction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanExtraction(rows *entsql.Rows) (entity.Extraction, error) {
	var (
		rec                                 entity.Extraction
		id, status                          string
		filePath, sourceKind, strategy      sql.NullString
		text, warnings, errKind, errMessage sql.NullString
		finishedAt                          sql.NullTime
		confidence, pageCount               sql.NullInt64
		processingMs                        sql.NullInt64
	)
	if err := rows.Scan(
		&id, &rec.FileName, &filePath, &rec.ContentHash, &rec.MIMEType, &rec.SizeBytes, &status,
		&rec.StartedAt, &finishedAt, &sourceKind, &strategy, &confidence, &pageCount,
		&processingMs, &text, &warnings, &errKind, &errMessage,
	); err != nil {
		return rec, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return rec, fmt.Errorf("bad extraction id %q: %w", id, err)
	}
	rec.ID = parsed
	rec.Status = constants.JobStatus(status)
	rec.FilePath = filePath.String
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	rec.SourceKind = strPtr(sourceKind)
	rec.Strategy = strPtr(strategy)
	rec.Text = strPtr(text)
	rec.ErrorKind = strPtr(errKind)
	rec.ErrorMessage = strPtr(errMessage)
	if confidence.Valid {
		v := int(confidence.Int64)
		rec.Confidence = &v
	}
	if pageCount.Valid {
		v := int(pageCount.Int64)
		rec.PageCount = &v
	}
	if processingMs.Valid {
		v := processingMs.Int64
		rec.ProcessingTimeMs = &v
	}
	if warnings.Valid && warnings.String != "" {
		if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
			return rec, fmt.Errorf("decode warnings: %w", err)
		}
	}
	return rec, nil
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func encodeWarnings(w []string) (any, error) {
	if len(w) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
