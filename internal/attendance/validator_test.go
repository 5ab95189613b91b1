package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/token"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

type sessionMap map[string]session.Session

func (m sessionMap) GetSession(_ context.Context, id string) (session.Session, error) {
	s, ok := m[id]
	if !ok {
		return session.Session{}, apperr.ErrNotFound
	}
	return s, nil
}

type enrolledIn map[string]string

func (e enrolledIn) IsEnrolled(_ context.Context, studentID, sectionID string) (bool, error) {
	return e[studentID] == sectionID, nil
}

func validatorFixture(now time.Time) (*LocalValidator, *token.Issuer) {
	sessions := sessionMap{
		"s-qr":     {ID: "s-qr", SectionID: "sec-1", Date: "2024-01-24", StartTime: "10:00", EndTime: "11:30", Method: session.MethodQRCode},
		"s-hybrid": {ID: "s-hybrid", SectionID: "sec-1", Date: "2024-01-24", StartTime: "10:00", EndTime: "11:30", Method: session.MethodHybrid},
		"s-off":    {ID: "s-off", SectionID: "sec-1", Date: "2024-01-24", StartTime: "10:00", EndTime: "11:30", Method: session.MethodQRCode, Cancelled: true},
	}
	tokens := token.NewIssuer("test-secret", 30*time.Second)
	v := NewLocalValidator(sessions, enrolledIn{"stu-1": "sec-1", "stu-2": "sec-9"}, tokens, func() time.Time { return now })
	return v, tokens
}

func rejection(t *testing.T, err error) string {
	t.Helper()
	var rejected *apperr.MarkRejectedError
	require.True(t, errors.As(err, &rejected), "want MarkRejectedError, got %v", err)
	return rejected.Message
}

func TestLocalValidator(t *testing.T) {
	ctx := context.Background()
	during := time.Date(2024, 1, 24, 10, 30, 0, 0, time.UTC)
	v, tokens := validatorFixture(during)

	tests := []struct {
		name   string
		req    MarkRequest
		reason string
	}{
		{name: "accepted", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode}},
		{name: "hybrid accepts face", req: MarkRequest{SessionID: "s-hybrid", StudentID: "stu-1", Method: session.MethodFacialRecognition}},
		{name: "current token", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode, Token: tokens.Current("s-qr", during)}},
		{name: "previous window token", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode, Token: tokens.Current("s-qr", during.Add(-30*time.Second))}},
		{name: "unknown session", req: MarkRequest{SessionID: "s-x", StudentID: "stu-1", Method: session.MethodQRCode}, reason: "session not found"},
		{name: "wrong method", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodFacialRecognition}, reason: "this session only accepts qr_code attendance"},
		{name: "cancelled", req: MarkRequest{SessionID: "s-off", StudentID: "stu-1", Method: session.MethodQRCode}, reason: "session was cancelled"},
		{name: "not enrolled", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-2", Method: session.MethodQRCode}, reason: "student is not enrolled in this section"},
		{name: "stale token", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode, Token: tokens.Current("s-qr", during.Add(-3*time.Minute))}, reason: token.ErrTokenExpired.Error()},
		{name: "token of another session", req: MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode, Token: tokens.Current("s-hybrid", during)}, reason: token.ErrInvalidToken.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(ctx, tt.req)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.reason, rejection(t, err))
		})
	}
}

func TestLocalValidatorWindow(t *testing.T) {
	ctx := context.Background()
	req := MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode}

	early, _ := validatorFixture(time.Date(2024, 1, 24, 9, 59, 0, 0, time.UTC))
	assert.Equal(t, "session has not started yet", rejection(t, early.Validate(ctx, req)))

	late, _ := validatorFixture(time.Date(2024, 1, 24, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "session has already ended", rejection(t, late.Validate(ctx, req)))

	edge, _ := validatorFixture(time.Date(2024, 1, 24, 11, 30, 0, 0, time.UTC))
	assert.NoError(t, edge.Validate(ctx, req))
}

func TestLocalValidatorRequireToken(t *testing.T) {
	ctx := context.Background()
	during := time.Date(2024, 1, 24, 10, 30, 0, 0, time.UTC)
	v, tokens := validatorFixture(during)
	v.RequireToken = true

	bare := MarkRequest{SessionID: "s-qr", StudentID: "stu-1", Method: session.MethodQRCode}
	assert.Equal(t, "a QR token is required, scan the session code", rejection(t, v.Validate(ctx, bare)))

	bare.Token = tokens.Current("s-qr", during)
	assert.NoError(t, v.Validate(ctx, bare))

	face := MarkRequest{SessionID: "s-hybrid", StudentID: "stu-1", Method: session.MethodFacialRecognition}
	assert.NoError(t, v.Validate(ctx, face))
}

func TestLocalValidatorDefaultsClock(t *testing.T) {
	sessions := sessionMap{"s-old": {ID: "s-old", SectionID: "sec-1", Date: "2000-01-10", StartTime: "10:00", EndTime: "11:00", Method: session.MethodQRCode}}
	v := NewLocalValidator(sessions, enrolledIn{"stu-1": "sec-1"}, token.NewIssuer("s", time.Minute), nil)

	err := v.Validate(context.Background(), MarkRequest{SessionID: "s-old", StudentID: "stu-1", Method: session.MethodQRCode})
	assert.Equal(t, "session has already ended", rejection(t, err))
}
