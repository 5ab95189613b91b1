package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/metrics"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/qr"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// Table is the realtime table name for session changes.
const Table = "attendance_sessions"

// Repository persists sessions. Implementations return *errors.PersistenceError
// for store failures and errors.ErrNotFound for missing rows.
type Repository interface {
	InsertSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, f Filter) ([]Session, error)
	UpdateSession(ctx context.Context, id string, p Patch) error
	SetQRPayload(ctx context.Context, id, payload string) error
	SetStatus(ctx context.Context, id string, st Status) error
	DeleteSession(ctx context.Context, id string) error
}

// RecordCleaner removes the attendance records that reference a session.
type RecordCleaner interface {
	DeleteRecordsBySession(ctx context.Context, sessionID string) (int64, error)
}

// Clock returns the current instant in the zone naive session times are read in.
type Clock func() time.Time

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

// Gateway performs session writes.
type Gateway struct {
	repo    Repository
	records RecordCleaner
	pub     realtime.Publisher
	origin  string
	clock   Clock
	log     zerolog.Logger
}

// NewGateway wires the mutation gateway. pub may be nil.
func NewGateway(repo Repository, records RecordCleaner, pub realtime.Publisher, origin string, clock Clock) *Gateway {
	if clock == nil {
		clock = SystemClock(time.Local)
	}
	return &Gateway{
		repo:    repo,
		records: records,
		pub:     pub,
		origin:  origin,
		clock:   clock,
		log:     logger.Component("session"),
	}
}

// Create validates and persists a new session. The identifier is assigned by
// the store, so the row is first written with a placeholder QR payload and the
// real payload is written once the identifier is known.
func (g *Gateway) Create(ctx context.Context, d Draft) (Session, error) {
	if d.Method == "" {
		d.Method = MethodQRCode
	}
	if err := ValidateDraft(d); err != nil {
		return Session{}, err
	}

	s := Session{
		CourseID:    d.CourseID,
		SectionID:   d.SectionID,
		LecturerID:  d.LecturerID,
		Title:       d.Title,
		Description: d.Description,
		Type:        d.Type,
		Date:        d.Date,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Location:    d.Location,
		Capacity:    d.Capacity,
		Method:      d.Method,
		QRPayload:   qr.Placeholder(g.origin),
		Status:      StatusScheduled,
	}
	if st, err := ResolveStatus(s, g.clock()); err == nil {
		s.Status = st
	}

	created, err := g.repo.InsertSession(ctx, s)
	if err != nil {
		metrics.SessionMutations.WithLabelValues("create", "error").Inc()
		return Session{}, err
	}

	payload := qr.ForSession(g.origin, created.ID)
	if err := g.repo.SetQRPayload(ctx, created.ID, payload); err != nil {
		metrics.SessionMutations.WithLabelValues("create", "error").Inc()
		g.log.Error().Err(err).Str("session_id", created.ID).Msg("session stored with placeholder QR payload")
		return created, err
	}
	created.QRPayload = payload
	metrics.SessionMutations.WithLabelValues("create", "ok").Inc()

	g.emit(ctx, realtime.Insert, created)
	g.log.Info().Str("session_id", created.ID).Str("section_id", created.SectionID).Msg("session created")
	return created, nil
}

// Update applies a partial update. Concurrent updates are not coordinated:
// the last write wins. Changing the time window resets the stored status to
// the resolved one unless the patch sets a status explicitly.
func (g *Gateway) Update(ctx context.Context, id string, p Patch) error {
	if p.Empty() {
		return apperr.NewValidationError("", "no updatable fields supplied")
	}
	if err := validateStruct(p); err != nil {
		return err
	}

	current, err := g.repo.GetSession(ctx, id)
	if err != nil {
		return err
	}
	merged := p.Apply(current)
	if p.Reschedules() {
		if err := validateWindow(merged); err != nil {
			return err
		}
		if p.Status == nil {
			if st, err := ResolveStatus(merged, g.clock()); err == nil {
				p.Status = &st
				merged.Status = st
			}
		}
	}

	if err := g.repo.UpdateSession(ctx, id, p); err != nil {
		metrics.SessionMutations.WithLabelValues("update", "error").Inc()
		return err
	}
	metrics.SessionMutations.WithLabelValues("update", "ok").Inc()

	merged.UpdatedAt = time.Now().UTC()
	g.emit(ctx, realtime.Update, merged)
	return nil
}

// Delete removes the session's attendance records and then the session.
// When the records cannot be removed the session is left in place.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	removed, err := g.records.DeleteRecordsBySession(ctx, id)
	if err != nil {
		metrics.SessionMutations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("delete attendance records of session %s: %w", id, err)
	}
	if err := g.repo.DeleteSession(ctx, id); err != nil {
		metrics.SessionMutations.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.SessionMutations.WithLabelValues("delete", "ok").Inc()

	g.emit(ctx, realtime.Delete, map[string]string{"id": id})
	g.log.Info().Str("session_id", id).Int64("records_removed", removed).Msg("session deleted")
	return nil
}

// SyncStatus persists the effective status of s when it differs from the
// stored one. Forward moves go through the lifecycle; a stored status the
// clock contradicts is advisory and gets overwritten. It reports whether
// anything was written.
func (g *Gateway) SyncStatus(ctx context.Context, s Session) (bool, error) {
	target, err := EffectiveStatus(s, g.clock())
	if err != nil {
		return false, err
	}
	events, err := Advance(ctx, s.Status, target)
	if errors.Is(err, ErrBackwardTransition) {
		g.log.Warn().Str("session_id", s.ID).Str("stored", string(s.Status)).Str("effective", string(target)).
			Msg("stored status contradicts the clock, resetting")
		events, err = []string{"reset"}, nil
	}
	if err != nil || len(events) == 0 {
		return false, err
	}
	if err := g.repo.SetStatus(ctx, s.ID, target); err != nil {
		return false, err
	}
	metrics.StatusTransitions.WithLabelValues(string(target)).Inc()

	s.Status = target
	g.emit(ctx, realtime.Update, s)
	return true, nil
}

func (g *Gateway) emit(ctx context.Context, typ realtime.EventType, row any) {
	if err := realtime.Emit(ctx, g.pub, Table, typ, row); err != nil {
		g.log.Warn().Err(err).Str("event", string(typ)).Msg("realtime publish failed")
	}
}
