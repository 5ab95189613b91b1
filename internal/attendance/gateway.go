package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/metrics"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/queue"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// RecordStore persists attendance records.
type RecordStore interface {
	UpsertRecord(ctx context.Context, rec Record) (Record, bool, error)
	ListBySession(ctx context.Context, sessionID string) ([]Record, error)
}

// Gateway records attendance marks after the validator accepts them.
type Gateway struct {
	validator Validator
	records   RecordStore
	jobs      queue.Queue
	pub       realtime.Publisher
	clock     session.Clock
	log       zerolog.Logger
}

// NewGateway wires the marking gateway. jobs and pub may be nil.
func NewGateway(v Validator, records RecordStore, jobs queue.Queue, pub realtime.Publisher, clock session.Clock) *Gateway {
	if clock == nil {
		clock = time.Now
	}
	return &Gateway{
		validator: v,
		records:   records,
		jobs:      jobs,
		pub:       pub,
		clock:     clock,
		log:       logger.Component("attendance"),
	}
}

// Mark validates and records a student's check-in. Marking the same session
// twice overwrites the earlier record.
func (g *Gateway) Mark(ctx context.Context, req MarkRequest) (Record, error) {
	if req.Method == "" {
		req.Method = session.MethodQRCode
	}
	if err := checkRequest(req); err != nil {
		metrics.AttendanceMarks.WithLabelValues(string(req.Method), "invalid").Inc()
		return Record{}, err
	}

	if err := g.validator.Validate(ctx, req); err != nil {
		var rejected *apperr.MarkRejectedError
		if errors.As(err, &rejected) {
			metrics.AttendanceMarks.WithLabelValues(string(req.Method), "rejected").Inc()
			g.log.Info().Str("session_id", req.SessionID).Str("student_id", req.StudentID).Str("reason", rejected.Message).Msg("mark rejected")
		} else {
			metrics.AttendanceMarks.WithLabelValues(string(req.Method), "error").Inc()
		}
		return Record{}, err
	}

	rec := Record{
		SessionID: req.SessionID,
		StudentID: req.StudentID,
		MarkedAt:  g.clock().UTC(),
		Method:    req.Method,
		Geo:       req.Geo,
		ImageURL:  req.ImageURL,
	}
	saved, inserted, err := g.records.UpsertRecord(ctx, rec)
	if err != nil {
		metrics.AttendanceMarks.WithLabelValues(string(req.Method), "error").Inc()
		return Record{}, err
	}
	metrics.AttendanceMarks.WithLabelValues(string(req.Method), "ok").Inc()

	evt := realtime.Update
	if inserted {
		evt = realtime.Insert
	}
	if err := realtime.Emit(ctx, g.pub, Table, evt, saved); err != nil {
		g.log.Warn().Err(err).Msg("realtime publish failed")
	}

	if req.Method.UsesFace() && req.ImageURL != "" && g.jobs != nil {
		g.enqueueFaceCheck(ctx, saved)
	}
	return saved, nil
}

// Records lists the marks of a session.
func (g *Gateway) Records(ctx context.Context, sessionID string) ([]Record, error) {
	return g.records.ListBySession(ctx, sessionID)
}

func (g *Gateway) enqueueFaceCheck(ctx context.Context, rec Record) {
	msg, err := queue.NewMessage(JobFaceVerify, FaceJob{RecordID: rec.ID, StudentID: rec.StudentID, ImageURL: rec.ImageURL})
	if err == nil {
		err = g.jobs.Publish(ctx, msg)
	}
	if err != nil {
		g.log.Error().Err(err).Str("record_id", rec.ID).Msg("queue publish failed")
	}
}

func checkRequest(req MarkRequest) error {
	if req.SessionID == "" {
		return apperr.NewValidationError("session_id", "this field is required")
	}
	if req.StudentID == "" {
		return apperr.NewValidationError("student_id", "this field is required")
	}
	if !req.Method.Valid() {
		return apperr.NewValidationError("method", "must be one of qr_code, facial_recognition, hybrid")
	}
	if req.Method == session.MethodFacialRecognition && req.ImageURL == "" {
		return apperr.NewValidationError("image_url", "required for facial_recognition")
	}
	return nil
}
