package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

type memRepo struct {
	mu          sync.Mutex
	rows        map[string]Session
	seq         int
	payloads    []string
	calls       *[]string
	setQRErr    error
	listCalls   int
	enrollments []Enrollment
	enrollCalls int
	insertErr   error
}

func newMemRepo(calls *[]string) *memRepo {
	if calls == nil {
		calls = &[]string{}
	}
	return &memRepo{rows: map[string]Session{}, calls: calls}
}

func (r *memRepo) InsertSession(_ context.Context, s Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	s.ID = fmt.Sprintf("s-%d", r.seq)
	s.CreatedAt = time.Now().UTC()
	s.UpdatedAt = s.CreatedAt
	r.rows[s.ID] = s
	r.payloads = append(r.payloads, s.QRPayload)
	*r.calls = append(*r.calls, "insert_session")
	return s, nil
}

func (r *memRepo) GetSession(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return Session{}, apperr.ErrNotFound
	}
	return s, nil
}

func (r *memRepo) ListSessions(_ context.Context, f Filter) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := []Session{}
	for _, s := range r.rows {
		if f.LecturerID != "" && s.LecturerID != f.LecturerID {
			continue
		}
		if f.SectionIDs != nil && !contains(f.SectionIDs, s.SectionID) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) UpdateSession(_ context.Context, id string, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	r.rows[id] = p.Apply(s)
	*r.calls = append(*r.calls, "update_session")
	return nil
}

func (r *memRepo) SetQRPayload(_ context.Context, id, payload string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setQRErr != nil {
		return r.setQRErr
	}
	s, ok := r.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	s.QRPayload = payload
	r.rows[id] = s
	r.payloads = append(r.payloads, payload)
	return nil
}

func (r *memRepo) SetStatus(_ context.Context, id string, st Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return apperr.ErrNotFound
	}
	s.Status = st
	r.rows[id] = s
	return nil
}

func (r *memRepo) DeleteSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.rows, id)
	*r.calls = append(*r.calls, "delete_session")
	return nil
}

func (r *memRepo) ListActiveEnrollments(_ context.Context, studentID string) ([]Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollCalls++
	out := []Enrollment{}
	for _, e := range r.enrollments {
		if e.StudentID == studentID && e.Status == EnrollmentActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) InsertEnrollment(_ context.Context, e Enrollment) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return Enrollment{}, r.insertErr
	}
	e.ID = fmt.Sprintf("e-%d", len(r.enrollments)+1)
	r.enrollments = append(r.enrollments, e)
	return e, nil
}

func (r *memRepo) SetEnrollmentStatus(_ context.Context, id string, st EnrollmentStatus) (Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.enrollments {
		if e.ID == id {
			r.enrollments[i].Status = st
			return r.enrollments[i], nil
		}
	}
	return Enrollment{}, apperr.ErrNotFound
}

// recordCleaner holds attendance record ids per session.
type recordCleaner struct {
	calls   *[]string
	err     error
	records map[string][]string
}

func (c *recordCleaner) seed(sessionID string, n int) {
	if c.records == nil {
		c.records = map[string][]string{}
	}
	for i := 0; i < n; i++ {
		c.records[sessionID] = append(c.records[sessionID], fmt.Sprintf("r-%d", i))
	}
}

func (c *recordCleaner) count(sessionID string) int {
	return len(c.records[sessionID])
}

func (c *recordCleaner) DeleteRecordsBySession(_ context.Context, sessionID string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	*c.calls = append(*c.calls, "delete_records")
	removed := len(c.records[sessionID])
	delete(c.records, sessionID)
	return int64(removed), nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
