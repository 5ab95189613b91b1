package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/auth"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/export"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/qr"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// ListSessions returns the sessions visible to the caller: students see their
// sections, lecturers their own sessions and admins everything.
func (h *Handler) ListSessions(c *gin.Context) {
	cl := claims(c)
	ctx := c.Request.Context()

	var (
		views []session.View
		err   error
	)
	switch cl.Role {
	case auth.RoleStudent:
		views, err = h.sessions.ListForStudent(ctx, cl.Subject)
	default:
		f := session.Filter{CourseID: c.Query("course_id"), Date: c.Query("date")}
		if cl.Role == auth.RoleLecturer {
			f.LecturerID = cl.Subject
		} else {
			f.LecturerID = c.Query("lecturer_id")
		}
		views, err = h.sessions.List(ctx, f)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

func (h *Handler) GetSession(c *gin.Context) {
	cl := claims(c)
	if cl.Role == auth.RoleStudent {
		v, err := h.sessions.GetForStudent(c.Request.Context(), c.Param("id"), cl.Subject)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
		return
	}
	v, ok := h.staffSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) CreateSession(c *gin.Context) {
	var d session.Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if cl := claims(c); cl.Role == auth.RoleLecturer {
		d.LecturerID = cl.Subject
	}
	created, err := h.mutations.Create(c.Request.Context(), d)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var p session.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	v, ok := h.staffSession(c)
	if !ok {
		return
	}
	if err := h.mutations.Update(c.Request.Context(), v.ID, p); err != nil {
		h.respondError(c, err)
		return
	}
	updated, err := h.sessions.Get(c.Request.Context(), v.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	v, ok := h.staffSession(c)
	if !ok {
		return
	}
	if err := h.mutations.Delete(c.Request.Context(), v.ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SessionQR renders the session payload with the current rotating token as a PNG.
func (h *Handler) SessionQR(c *gin.Context) {
	v, ok := h.staffSession(c)
	if !ok {
		return
	}
	if qr.IsPlaceholder(v.QRPayload) {
		h.respondError(c, apperr.ErrNotFound)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size < 64 || size > 1024 {
		size = 256
	}

	now := h.clock()
	payload := qr.WithToken(v.QRPayload, h.tokens.Current(v.ID, now))
	png, err := qr.PNG(payload, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Header("X-Token-Expires-At", h.tokens.ExpiresAt(now).UTC().Format("2006-01-02T15:04:05Z"))
	c.Data(http.StatusOK, "image/png", png)
}

// SessionRecords lists attendance. Students only see their own record.
func (h *Handler) SessionRecords(c *gin.Context) {
	cl := claims(c)
	var id string
	if cl.Role == auth.RoleStudent {
		v, err := h.sessions.GetForStudent(c.Request.Context(), c.Param("id"), cl.Subject)
		if err != nil {
			h.respondError(c, err)
			return
		}
		id = v.ID
	} else {
		v, ok := h.staffSession(c)
		if !ok {
			return
		}
		id = v.ID
	}

	records, err := h.attendance.Records(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if cl.Role == auth.RoleStudent {
		own := []attendance.Record{}
		for _, r := range records {
			if r.StudentID == cl.Subject {
				own = append(own, r)
			}
		}
		records = own
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) ExportAttendance(c *gin.Context) {
	v, ok := h.staffSession(c)
	if !ok {
		return
	}
	records, err := h.attendance.Records(c.Request.Context(), v.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteAttendance(&buf, v.Session, records); err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendance-`+v.ID+`.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// staffSession loads the :id session for a lecturer or admin. Lecturers may
// only touch their own sessions.
func (h *Handler) staffSession(c *gin.Context) (session.View, bool) {
	v, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return session.View{}, false
	}
	if cl := claims(c); cl.Role == auth.RoleLecturer && v.LecturerID != cl.Subject {
		h.respondError(c, apperr.ErrForbidden)
		return session.View{}, false
	}
	return v, true
}
