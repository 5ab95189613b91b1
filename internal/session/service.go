package session

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// EnrollmentTable is the change channel for enrollment writes. Every API
// instance drops its cached section set for the student on these events.
const EnrollmentTable = "section_enrollments"

// EnrollmentRepository persists section enrollments.
type EnrollmentRepository interface {
	ListActiveEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
	InsertEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id string, st EnrollmentStatus) (Enrollment, error)
}

const enrollmentCacheTTL = 30 * time.Second

// Service answers session reads scoped by role and manages enrollments.
// Listings use a short-lived per-student section cache; single-session
// access checks always read the repository.
type Service struct {
	repo        Repository
	enrollments EnrollmentRepository
	sections    *cache.Cache
	pub         realtime.Publisher
	clock       Clock
	log         zerolog.Logger
}

// NewService creates the read-side service. pub may be nil.
func NewService(repo Repository, enrollments EnrollmentRepository, pub realtime.Publisher, clock Clock) *Service {
	if clock == nil {
		clock = SystemClock(time.Local)
	}
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		sections:    cache.New(enrollmentCacheTTL, 2*enrollmentCacheTTL),
		pub:         pub,
		clock:       clock,
		log:         logger.Component("session"),
	}
}

// WatchEnrollments evicts cached section sets when any instance reports an
// enrollment change. It returns when ctx is done.
func (s *Service) WatchEnrollments(ctx context.Context, hub *realtime.Hub) {
	sub := hub.Subscribe(EnrollmentTable, realtime.Filter{})
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			if id, ok := evt.New["student_id"]; ok && id != nil {
				s.sections.Delete(fmt.Sprint(id))
			}
		}
	}
}

func (s *Service) enrollmentChanged(ctx context.Context, typ realtime.EventType, e Enrollment) {
	s.sections.Delete(e.StudentID)
	if err := realtime.Emit(ctx, s.pub, EnrollmentTable, typ, e); err != nil {
		s.log.Warn().Err(err).Str("student_id", e.StudentID).Msg("enrollment change not broadcast")
	}
}

func (s *Service) activeEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	if cached, ok := s.sections.Get(studentID); ok {
		return cached.([]Enrollment), nil
	}
	list, err := s.enrollments.ListActiveEnrollments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	s.sections.Set(studentID, list, cache.DefaultExpiration)
	return list, nil
}

// ListForStudent returns the sessions of sections the student is actively enrolled in.
func (s *Service) ListForStudent(ctx context.Context, studentID string) ([]View, error) {
	enrollments, err := s.activeEnrollments(ctx, studentID)
	if err != nil {
		return nil, err
	}
	sections := ActiveSections(studentID, enrollments)
	if len(sections) == 0 {
		return []View{}, nil
	}
	ids := make([]string, 0, len(sections))
	for id := range sections {
		ids = append(ids, id)
	}
	all, err := s.repo.ListSessions(ctx, Filter{SectionIDs: ids})
	if err != nil {
		return nil, err
	}
	return Annotate(VisibleSessions(all, studentID, enrollments), s.clock()), nil
}

// List returns sessions matching f, annotated with their effective status.
func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	all, err := s.repo.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}
	return Annotate(all, s.clock()), nil
}

// Get returns one session annotated with its effective status.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return View{}, err
	}
	return Annotate([]Session{sess}, s.clock())[0], nil
}

// GetForStudent returns the session only when the student may see it.
func (s *Service) GetForStudent(ctx context.Context, id, studentID string) (View, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	ok, err := s.IsEnrolled(ctx, studentID, v.SectionID)
	if err != nil {
		return View{}, err
	}
	if !ok {
		return View{}, apperr.ErrNotFound
	}
	return v, nil
}

// IsEnrolled reports whether the student holds an active enrollment in sectionID.
// It bypasses the section cache so a withdrawal takes effect on every instance at once.
func (s *Service) IsEnrolled(ctx context.Context, studentID, sectionID string) (bool, error) {
	enrollments, err := s.enrollments.ListActiveEnrollments(ctx, studentID)
	if err != nil {
		return false, err
	}
	_, ok := ActiveSections(studentID, enrollments)[sectionID]
	return ok, nil
}

// Enroll adds a student to a section.
func (s *Service) Enroll(ctx context.Context, e Enrollment) (Enrollment, error) {
	if e.StudentID == "" {
		return Enrollment{}, apperr.NewValidationError("student_id", "this field is required")
	}
	if e.SectionID == "" {
		return Enrollment{}, apperr.NewValidationError("section_id", "this field is required")
	}
	if e.Status == "" {
		e.Status = EnrollmentActive
	}
	if !e.Status.Valid() {
		return Enrollment{}, apperr.NewValidationError("status", "must be one of active, inactive, withdrawn, completed")
	}
	created, err := s.enrollments.InsertEnrollment(ctx, e)
	if err != nil {
		return Enrollment{}, err
	}
	s.enrollmentChanged(ctx, realtime.Insert, created)
	return created, nil
}

// SetEnrollmentStatus changes an enrollment's status, which immediately
// changes the sessions the student can see and mark.
func (s *Service) SetEnrollmentStatus(ctx context.Context, id string, st EnrollmentStatus) (Enrollment, error) {
	if !st.Valid() {
		return Enrollment{}, apperr.NewValidationError("status", "must be one of active, inactive, withdrawn, completed")
	}
	updated, err := s.enrollments.SetEnrollmentStatus(ctx, id, st)
	if err != nil {
		return Enrollment{}, err
	}
	s.enrollmentChanged(ctx, realtime.Update, updated)
	return updated, nil
}
