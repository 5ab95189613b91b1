package session

import (
	"time"
)

// Status is the lifecycle state of an attendance session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further lifecycle transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Method is how attendance is captured for a session.
type Method string

const (
	MethodQRCode            Method = "qr_code"
	MethodFacialRecognition Method = "facial_recognition"
	MethodHybrid            Method = "hybrid"
)

func (m Method) Valid() bool {
	switch m {
	case MethodQRCode, MethodFacialRecognition, MethodHybrid:
		return true
	default:
		return false
	}
}

// UsesFace reports whether the method involves a face check.
func (m Method) UsesFace() bool {
	return m == MethodFacialRecognition || m == MethodHybrid
}

// Session is one scheduled class meeting for a course section.
// Date, StartTime and EndTime are naive local values; Status is advisory and
// the effective state is always recomputed with EffectiveStatus.
type Session struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	LecturerID  string    `db:"lecturer_id" json:"lecturer_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Type        string    `db:"session_type" json:"type"`
	Date        string    `db:"session_date" json:"date"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Location    string    `db:"location" json:"location"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Enrolled    int       `db:"enrolled" json:"enrolled"`
	Method      Method    `db:"attendance_method" json:"attendance_method"`
	QRPayload   string    `db:"qr_payload" json:"qr_payload"`
	Status      Status    `db:"status" json:"status"`
	Cancelled   bool      `db:"cancelled" json:"cancelled"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// View is a session annotated with its effective status at read time.
type View struct {
	Session
	Effective Status `json:"effective_status"`
}

// Draft carries the fields a lecturer submits to create a session.
type Draft struct {
	CourseID    string `json:"course_id" validate:"required"`
	SectionID   string `json:"section_id" validate:"required"`
	LecturerID  string `json:"lecturer_id" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required,clock"`
	EndTime     string `json:"end_time" validate:"required,clock"`
	Location    string `json:"location" validate:"required,notblank"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
	Method      Method `json:"attendance_method" validate:"omitempty,method"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string `json:"title"`
	SectionID   *string `json:"section_id" validate:"omitempty,notblank"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   *string `json:"start_time" validate:"omitempty,clock"`
	EndTime     *string `json:"end_time" validate:"omitempty,clock"`
	Method      *Method `json:"attendance_method" validate:"omitempty,method"`
	Location    *string `json:"location" validate:"omitempty,notblank"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0"`
	Enrolled    *int    `json:"enrolled" validate:"omitempty,gte=0"`
	Description *string `json:"description"`
	Status      *Status `json:"status" validate:"omitempty,status"`
	Type        *string `json:"type"`
	Cancelled   *bool   `json:"cancelled"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.SectionID == nil && p.Date == nil && p.StartTime == nil &&
		p.EndTime == nil && p.Method == nil && p.Location == nil && p.Capacity == nil &&
		p.Enrolled == nil && p.Description == nil && p.Status == nil && p.Type == nil && p.Cancelled == nil
}

// Reschedules reports whether the patch touches the session's time window.
func (p Patch) Reschedules() bool {
	return p.Date != nil || p.StartTime != nil || p.EndTime != nil
}

// Apply returns a copy of s with the patch fields merged in.
func (p Patch) Apply(s Session) Session {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.SectionID != nil {
		s.SectionID = *p.SectionID
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if p.Method != nil {
		s.Method = *p.Method
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Capacity != nil {
		s.Capacity = *p.Capacity
	}
	if p.Enrolled != nil {
		s.Enrolled = *p.Enrolled
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Type != nil {
		s.Type = *p.Type
	}
	if p.Cancelled != nil {
		s.Cancelled = *p.Cancelled
	}
	return s
}

// EnrollmentStatus is the state of a student's section enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentInactive  EnrollmentStatus = "inactive"
	EnrollmentWithdrawn EnrollmentStatus = "withdrawn"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentActive, EnrollmentInactive, EnrollmentWithdrawn, EnrollmentCompleted:
		return true
	default:
		return false
	}
}

// Enrollment links a student to a section for an academic year and semester.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	SectionID    string           `db:"section_id" json:"section_id"`
	AcademicYear string           `db:"academic_year" json:"academic_year"`
	Semester     string           `db:"semester" json:"semester"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Filter narrows session listings.
type Filter struct {
	LecturerID string
	CourseID   string
	SectionIDs []string
	Date       string
}
