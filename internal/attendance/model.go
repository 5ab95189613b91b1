package attendance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
)

// Table is the realtime table name for attendance record changes.
const Table = "attendance_records"

// Geo is the device location captured with a mark.
type Geo struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// Value stores Geo as JSON.
func (g Geo) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan reads a JSON column into Geo.
func (g *Geo) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = Geo{}
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	default:
		return errors.New("geo: unsupported column type")
	}
}

// Record is one student's attendance for one session.
type Record struct {
	ID         string         `db:"id" json:"id"`
	SessionID  string         `db:"session_id" json:"session_id"`
	StudentID  string         `db:"student_id" json:"student_id"`
	MarkedAt   time.Time      `db:"marked_at" json:"marked_at"`
	Method     session.Method `db:"method" json:"method"`
	Confidence *float64       `db:"confidence" json:"confidence,omitempty"`
	Geo        *Geo           `db:"geo" json:"geo,omitempty"`
	ImageURL   string         `db:"image_url" json:"image_url,omitempty"`
}

// MarkRequest is a student's check-in attempt.
type MarkRequest struct {
	SessionID string         `json:"session_id"`
	StudentID string         `json:"student_id"`
	Method    session.Method `json:"method"`
	Token     string         `json:"token,omitempty"`
	Geo       *Geo           `json:"geo,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
}
