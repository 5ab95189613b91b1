package attendance

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
)

const recordColumns = `id, session_id, student_id, marked_at, method, confidence, geo, image_url`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// UpsertRecord writes the mark for (session, student), replacing an earlier one.
// inserted is false when an existing record was overwritten.
func (r *Repository) UpsertRecord(ctx context.Context, rec Record) (saved Record, inserted bool, err error) {
	var geo any
	if rec.Geo != nil {
		geo = *rec.Geo
	}
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO attendance_records (session_id, student_id, marked_at, method, confidence, geo, image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (session_id, student_id) DO UPDATE SET
			marked_at  = EXCLUDED.marked_at,
			method     = EXCLUDED.method,
			confidence = EXCLUDED.confidence,
			geo        = EXCLUDED.geo,
			image_url  = EXCLUDED.image_url
		RETURNING id, (xmax = 0) AS inserted
	`, rec.SessionID, rec.StudentID, rec.MarkedAt, rec.Method, rec.Confidence, geo, rec.ImageURL)
	if err := row.Scan(&rec.ID, &inserted); err != nil {
		return Record{}, false, store.Translate("upsert attendance record", err)
	}
	return rec, inserted, nil
}

// GetRecord returns a single record by id.
func (r *Repository) GetRecord(ctx context.Context, id string) (Record, error) {
	var rec Record
	if err := r.db.GetContext(ctx, &rec, `SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id); err != nil {
		return Record{}, store.Translate("get attendance record", err)
	}
	return rec, nil
}

// ListBySession returns the records of a session, earliest mark first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	records := []Record{}
	err := r.db.SelectContext(ctx, &records, `
		SELECT `+recordColumns+` FROM attendance_records WHERE session_id = $1 ORDER BY marked_at
	`, sessionID)
	if err != nil {
		return nil, store.Translate("list attendance records", err)
	}
	return records, nil
}

// SetConfidence stores the face match score of a record.
func (r *Repository) SetConfidence(ctx context.Context, id string, score float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE attendance_records SET confidence = $2 WHERE id = $1`, id, score)
	if err != nil {
		return store.Translate("update attendance confidence", err)
	}
	return store.RequireAffected("update attendance confidence", res)
}

// DeleteRecordsBySession removes every record of a session.
func (r *Repository) DeleteRecordsBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, store.Translate("delete attendance records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, store.Translate("delete attendance records", err)
	}
	return n, nil
}
