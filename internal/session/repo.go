package session

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
)

const sessionColumns = `id, course_id, section_id, lecturer_id, title, description, session_type,
	session_date, start_time, end_time, location, capacity, enrolled, attendance_method,
	qr_payload, status, cancelled, created_at, updated_at`

// PGRepository persists sessions and enrollments in Postgres.
type PGRepository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{db: db}
}

// InsertSession writes a new session; the identifier and timestamps are assigned by the database.
func (r *PGRepository) InsertSession(ctx context.Context, s Session) (Session, error) {
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO attendance_sessions (course_id, section_id, lecturer_id, title, description, session_type,
			session_date, start_time, end_time, location, capacity, enrolled, attendance_method, qr_payload, status, cancelled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id, created_at, updated_at
	`, s.CourseID, s.SectionID, s.LecturerID, s.Title, s.Description, s.Type,
		s.Date, s.StartTime, s.EndTime, s.Location, s.Capacity, s.Enrolled, s.Method, s.QRPayload, s.Status, s.Cancelled)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return Session{}, store.Translate("insert session", err)
	}
	return s, nil
}

// GetSession returns a single session by id.
func (r *PGRepository) GetSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1`, id)
	if err != nil {
		return Session{}, store.Translate("get session", err)
	}
	return s, nil
}

// ListSessions returns sessions with basic filters, newest date first.
func (r *PGRepository) ListSessions(ctx context.Context, f Filter) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions`
	args := []any{}
	clauses := []string{}
	if f.LecturerID != "" {
		args = append(args, f.LecturerID)
		clauses = append(clauses, "lecturer_id = $"+strconv.Itoa(len(args)))
	}
	if f.CourseID != "" {
		args = append(args, f.CourseID)
		clauses = append(clauses, "course_id = $"+strconv.Itoa(len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, "session_date = $"+strconv.Itoa(len(args)))
	}
	if f.SectionIDs != nil {
		args = append(args, f.SectionIDs)
		clauses = append(clauses, "section_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY session_date DESC, start_time DESC"

	sessions := []Session{}
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, store.Translate("list sessions", err)
	}
	return sessions, nil
}

// ListUnsettled returns sessions dated on or before day whose stored status can still move.
func (r *PGRepository) ListUnsettled(ctx context.Context, day string) ([]Session, error) {
	sessions := []Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT `+sessionColumns+` FROM attendance_sessions
		WHERE session_date <= $1 AND status IN ('scheduled', 'active')
		ORDER BY session_date, start_time
	`, day)
	if err != nil {
		return nil, store.Translate("list unsettled sessions", err)
	}
	return sessions, nil
}

// UpdateSession writes only the fields present in p.
func (r *PGRepository) UpdateSession(ctx context.Context, id string, p Patch) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.SectionID != nil {
		add("section_id", *p.SectionID)
	}
	if p.Date != nil {
		add("session_date", *p.Date)
	}
	if p.StartTime != nil {
		add("start_time", *p.StartTime)
	}
	if p.EndTime != nil {
		add("end_time", *p.EndTime)
	}
	if p.Method != nil {
		add("attendance_method", *p.Method)
	}
	if p.Location != nil {
		add("location", *p.Location)
	}
	if p.Capacity != nil {
		add("capacity", *p.Capacity)
	}
	if p.Enrolled != nil {
		add("enrolled", *p.Enrolled)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Type != nil {
		add("session_type", *p.Type)
	}
	if p.Cancelled != nil {
		add("cancelled", *p.Cancelled)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := "UPDATE attendance_sessions SET " + strings.Join(sets, ", ") +
		", updated_at = NOW() WHERE id = $" + strconv.Itoa(len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return store.Translate("update session", err)
	}
	return store.RequireAffected("update session", res)
}

// SetQRPayload replaces the stored QR payload.
func (r *PGRepository) SetQRPayload(ctx context.Context, id, payload string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions SET qr_payload = $2, updated_at = NOW() WHERE id = $1
	`, id, payload)
	if err != nil {
		return store.Translate("update session qr payload", err)
	}
	return store.RequireAffected("update session qr payload", res)
}

// SetStatus persists the advisory status.
func (r *PGRepository) SetStatus(ctx context.Context, id string, st Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, st)
	if err != nil {
		return store.Translate("update session status", err)
	}
	return store.RequireAffected("update session status", res)
}

// DeleteSession removes the session row. Attendance records must be removed first.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_sessions WHERE id = $1`, id)
	if err != nil {
		return store.Translate("delete session", err)
	}
	return store.RequireAffected("delete session", res)
}

// ListActiveEnrollments returns the student's active section enrollments.
func (r *PGRepository) ListActiveEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	list := []Enrollment{}
	err := r.db.SelectContext(ctx, &list, `
		SELECT id, student_id, section_id, academic_year, semester, status, created_at
		FROM section_enrollments
		WHERE student_id = $1 AND status = 'active'
	`, studentID)
	if err != nil {
		return nil, store.Translate("list enrollments", err)
	}
	return list, nil
}

// InsertEnrollment writes a new enrollment.
func (r *PGRepository) InsertEnrollment(ctx context.Context, e Enrollment) (Enrollment, error) {
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO section_enrollments (student_id, section_id, academic_year, semester, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, e.StudentID, e.SectionID, e.AcademicYear, e.Semester, e.Status)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return Enrollment{}, store.Translate("insert enrollment", err)
	}
	return e, nil
}

// SetEnrollmentStatus updates an enrollment's status and returns the row.
func (r *PGRepository) SetEnrollmentStatus(ctx context.Context, id string, st EnrollmentStatus) (Enrollment, error) {
	var e Enrollment
	err := r.db.GetContext(ctx, &e, `
		UPDATE section_enrollments SET status = $2 WHERE id = $1
		RETURNING id, student_id, section_id, academic_year, semester, status, created_at
	`, id, st)
	if err != nil {
		return Enrollment{}, store.Translate("update enrollment", err)
	}
	return e, nil
}
