package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/material"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/token"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// SessionReader serves role-scoped session reads and enrollment changes.
type SessionReader interface {
	ListForStudent(ctx context.Context, studentID string) ([]session.View, error)
	List(ctx context.Context, f session.Filter) ([]session.View, error)
	Get(ctx context.Context, id string) (session.View, error)
	GetForStudent(ctx context.Context, id, studentID string) (session.View, error)
	Enroll(ctx context.Context, e session.Enrollment) (session.Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id string, st session.EnrollmentStatus) (session.Enrollment, error)
}

// SessionMutator performs session writes.
type SessionMutator interface {
	Create(ctx context.Context, d session.Draft) (session.Session, error)
	Update(ctx context.Context, id string, p session.Patch) error
	Delete(ctx context.Context, id string) error
}

// Marker records and lists attendance.
type Marker interface {
	Mark(ctx context.Context, req attendance.MarkRequest) (attendance.Record, error)
	Records(ctx context.Context, sessionID string) ([]attendance.Record, error)
}

// Materials stores course files.
type Materials interface {
	Upload(ctx context.Context, courseID, uploaderID, title, fileName, contentType string, data io.Reader) (material.Material, error)
	List(ctx context.Context, courseID string) ([]material.Material, error)
}

// Refresher rotates refresh tokens.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// HealthFunc reports dependency health by name.
type HealthFunc func(ctx context.Context) map[string]bool

type Handler struct {
	sessions   SessionReader
	mutations  SessionMutator
	attendance Marker
	materials  Materials
	refresher  Refresher
	tokens     *token.Issuer
	hub        *realtime.Hub
	health     HealthFunc
	clock      session.Clock
	log        zerolog.Logger
}

// Deps groups what the handler needs. Materials, Hub and Health may be nil.
type Deps struct {
	Sessions   SessionReader
	Mutations  SessionMutator
	Attendance Marker
	Materials  Materials
	Refresher  Refresher
	Tokens     *token.Issuer
	Hub        *realtime.Hub
	Health     HealthFunc
	Clock      session.Clock
}

func NewHandler(d Deps) *Handler {
	clock := d.Clock
	if clock == nil {
		clock = session.SystemClock(time.Local)
	}
	return &Handler{
		sessions:   d.Sessions,
		mutations:  d.Mutations,
		attendance: d.Attendance,
		materials:  d.Materials,
		refresher:  d.Refresher,
		tokens:     d.Tokens,
		hub:        d.Hub,
		health:     d.Health,
		clock:      clock,
		log:        logger.Component("api"),
	}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	checks := map[string]bool{}
	if h.health != nil {
		checks = h.health(c.Request.Context())
	}
	status := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body := gin.H{"status": "ok"}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	for name, ok := range checks {
		body[name] = ok
	}
	c.JSON(status, body)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	pair, err := h.refresher.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrRefreshRejected) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// respondError maps service errors to HTTP responses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validation apperr.ValidationError
		rejected   *apperr.MarkRejectedError
	)
	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Error()}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &rejected):
		c.JSON(http.StatusForbidden, gin.H{"error": rejected.Message})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case apperr.IsUniqueViolation(err):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func claims(c *gin.Context) auth.Claims {
	cl, _ := auth.ClaimsFrom(c)
	return cl
}
