package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"errors"
	"strconv"
	"time"
)

const (
	tokenLength = 16
	// windows older than this are reported as invalid rather than expired
	expiredLookback = 10
)

var (
	salt = []byte("attendance.session.rotating_token")

	ErrInvalidToken = errors.New("invalid attendance token")
	ErrTokenExpired = errors.New("attendance token expired, rescan the QR code")
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Issuer derives short-lived per-session tokens from a secret. Tokens rotate
// every Rotation period; the previous period's token stays valid as grace
// for scans taken just before a rotation.
type Issuer struct {
	secret   []byte
	Rotation time.Duration
}

// NewIssuer creates an issuer. Rotations shorter than a second default to 30s.
func NewIssuer(secret string, rotation time.Duration) *Issuer {
	if rotation < time.Second {
		rotation = 30 * time.Second
	}
	key := sha256.Sum256(append(append([]byte{}, salt...), secret...))
	return &Issuer{secret: key[:], Rotation: rotation}
}

func (i *Issuer) window(t time.Time) int64 {
	return t.Unix() / int64(i.Rotation/time.Second)
}

func (i *Issuer) sign(sessionID string, window int64) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(sessionID))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(window, 10)))
	return encoding.EncodeToString(h.Sum(nil))[:tokenLength]
}

// Current returns the token valid for sessionID at now.
func (i *Issuer) Current(sessionID string, now time.Time) string {
	return i.sign(sessionID, i.window(now))
}

// ExpiresAt returns when the token current at now stops being the current token.
func (i *Issuer) ExpiresAt(now time.Time) time.Time {
	step := int64(i.Rotation / time.Second)
	return time.Unix((i.window(now)+1)*step, 0).In(now.Location())
}

// Verify checks tok against the current and previous rotation windows.
func (i *Issuer) Verify(sessionID, tok string, now time.Time) error {
	if len(tok) != tokenLength {
		return ErrInvalidToken
	}
	w := i.window(now)
	for _, candidate := range []int64{w, w - 1} {
		if equal(i.sign(sessionID, candidate), tok) {
			return nil
		}
	}
	for back := int64(2); back <= expiredLookback; back++ {
		if equal(i.sign(sessionID, w-back), tok) {
			return ErrTokenExpired
		}
	}
	return ErrInvalidToken
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
