package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/qr"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

type markBody struct {
	StudentID string          `json:"student_id"`
	Method    session.Method  `json:"method"`
	Token     string          `json:"token"`
	QRPayload string          `json:"qr_payload"`
	Geo       *attendance.Geo `json:"geo"`
	ImageURL  string          `json:"image_url"`
}

// MarkAttendance records the calling student's attendance for :id. A scanned
// QR payload may be sent instead of a bare token.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var body markBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	cl := claims(c)
	if body.StudentID != "" && body.StudentID != cl.Subject {
		h.respondError(c, apperr.ErrForbidden)
		return
	}

	sessionID := c.Param("id")
	tok := body.Token
	if body.QRPayload != "" {
		scannedID, scannedTok, err := qr.Parse(body.QRPayload)
		if err != nil {
			h.respondError(c, apperr.NewValidationError("qr_payload", err.Error()))
			return
		}
		if scannedID != sessionID {
			h.respondError(c, apperr.NewValidationError("qr_payload", "QR code belongs to another session"))
			return
		}
		if tok == "" {
			tok = scannedTok
		}
	}

	rec, err := h.attendance.Mark(c.Request.Context(), attendance.MarkRequest{
		SessionID: sessionID,
		StudentID: cl.Subject,
		Method:    body.Method,
		Token:     tok,
		Geo:       body.Geo,
		ImageURL:  body.ImageURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) CreateEnrollment(c *gin.Context) {
	var e session.Enrollment
	if err := c.ShouldBindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	e.ID = ""
	created, err := h.sessions.Enroll(c.Request.Context(), e)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateEnrollment(c *gin.Context) {
	var req struct {
		Status session.EnrollmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	updated, err := h.sessions.SetEnrollmentStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
