package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/token"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// Validator decides whether a mark may be recorded. It is the only place
// that enforces the session window; callers never authorize with their own clock.
type Validator interface {
	Validate(ctx context.Context, req MarkRequest) error
}

// SessionReader loads sessions for validation.
type SessionReader interface {
	GetSession(ctx context.Context, id string) (session.Session, error)
}

// EnrollmentChecker answers whether a student is actively enrolled in a section.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, sectionID string) (bool, error)
}

// LocalValidator performs the window, enrollment and token checks in-process.
type LocalValidator struct {
	sessions    SessionReader
	enrollments EnrollmentChecker
	tokens      *token.Issuer
	clock       session.Clock

	// RequireToken rejects qr_code marks that carry no rotating token.
	RequireToken bool
}

// NewLocalValidator creates the in-process validator.
func NewLocalValidator(sessions SessionReader, enrollments EnrollmentChecker, tokens *token.Issuer, clock session.Clock) *LocalValidator {
	if clock == nil {
		clock = time.Now
	}
	return &LocalValidator{sessions: sessions, enrollments: enrollments, tokens: tokens, clock: clock}
}

// Validate rejects marks for sessions that are not active, students outside
// the session's section and stale or forged tokens.
func (v *LocalValidator) Validate(ctx context.Context, req MarkRequest) error {
	s, err := v.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewMarkRejected("session not found")
		}
		return err
	}

	if s.Method != session.MethodHybrid && req.Method != s.Method {
		return apperr.NewMarkRejected("this session only accepts %s attendance", s.Method)
	}

	now := v.clock()
	st, err := session.EffectiveStatus(s, now)
	if err != nil {
		return err
	}
	switch st {
	case session.StatusScheduled:
		return apperr.NewMarkRejected("session has not started yet")
	case session.StatusCompleted:
		return apperr.NewMarkRejected("session has already ended")
	case session.StatusCancelled:
		return apperr.NewMarkRejected("session was cancelled")
	}

	enrolled, err := v.enrollments.IsEnrolled(ctx, req.StudentID, s.SectionID)
	if err != nil {
		return err
	}
	if !enrolled {
		return apperr.NewMarkRejected("student is not enrolled in this section")
	}

	if req.Token == "" && v.RequireToken && req.Method == session.MethodQRCode {
		return apperr.NewMarkRejected("a QR token is required, scan the session code")
	}
	if req.Token != "" {
		if err := v.tokens.Verify(s.ID, req.Token, now); err != nil {
			return apperr.NewMarkRejected("%s", err.Error())
		}
	}
	return nil
}
