package qr

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	attendPath     = "/attend/"
	placeholderTag = "pending-"
	tokenParam     = "t"
)

var ErrMalformedPayload = errors.New("malformed attendance QR payload")

// Placeholder builds the payload stored before a session has its identifier.
// Each call embeds a fresh temporary token.
func Placeholder(origin string) string {
	return strings.TrimRight(origin, "/") + attendPath + placeholderTag + uuid.NewString()
}

// ForSession builds the stable payload for a persisted session.
func ForSession(origin, sessionID string) string {
	return strings.TrimRight(origin, "/") + attendPath + url.PathEscape(sessionID)
}

// WithToken appends the rotating token to a session payload.
func WithToken(payload, tok string) string {
	if tok == "" {
		return payload
	}
	sep := "?"
	if strings.Contains(payload, "?") {
		sep = "&"
	}
	return payload + sep + tokenParam + "=" + url.QueryEscape(tok)
}

// IsPlaceholder reports whether payload still references a temporary token.
func IsPlaceholder(payload string) bool {
	return strings.Contains(payload, attendPath+placeholderTag)
}

// Parse extracts the session identifier and optional token from a scanned payload.
func Parse(payload string) (sessionID, tok string, err error) {
	u, err := url.Parse(strings.TrimSpace(payload))
	if err != nil {
		return "", "", ErrMalformedPayload
	}
	escaped := u.EscapedPath()
	idx := strings.LastIndex(escaped, attendPath)
	if idx < 0 {
		return "", "", ErrMalformedPayload
	}
	sessionID, err = url.PathUnescape(escaped[idx+len(attendPath):])
	if err != nil || sessionID == "" || strings.Contains(sessionID, "/") || strings.HasPrefix(sessionID, placeholderTag) {
		return "", "", ErrMalformedPayload
	}
	return sessionID, u.Query().Get(tokenParam), nil
}

// PNG renders payload as a QR code image of size x size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
