package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/queue"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/token"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

type stubValidator struct {
	err   error
	calls int
}

func (v *stubValidator) Validate(context.Context, MarkRequest) error {
	v.calls++
	return v.err
}

type memRecords struct {
	mu   sync.Mutex
	rows map[string]Record
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[string]Record{}}
}

func (m *memRecords) UpsertRecord(_ context.Context, rec Record) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.SessionID + "|" + rec.StudentID
	existing, ok := m.rows[key]
	if ok {
		rec.ID = existing.ID
	} else {
		rec.ID = "r-" + rec.StudentID
	}
	m.rows[key] = rec
	return rec, !ok, nil
}

func (m *memRecords) ListBySession(_ context.Context, sessionID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for _, r := range m.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

type captureQueue struct {
	msgs []queue.Message
}

func (q *captureQueue) Publish(_ context.Context, msg queue.Message) error {
	q.msgs = append(q.msgs, msg)
	return nil
}

func (q *captureQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("not supported")
}

type capturePublisher struct {
	events []realtime.Event
}

func (p *capturePublisher) Publish(_ context.Context, evt realtime.Event) error {
	p.events = append(p.events, evt)
	return nil
}

var markTime = time.Date(2024, 1, 24, 10, 30, 0, 0, time.UTC)

func newTestGateway(v Validator) (*Gateway, *memRecords, *captureQueue, *capturePublisher) {
	records := newMemRecords()
	q := &captureQueue{}
	pub := &capturePublisher{}
	g := NewGateway(v, records, q, pub, func() time.Time { return markTime })
	return g, records, q, pub
}

func TestMarkIsIdempotentPerStudent(t *testing.T) {
	ctx := context.Background()
	now := markTime
	clock := func() time.Time { return now }
	sessions := sessionMap{"s-hybrid": {
		ID: "s-hybrid", SectionID: "sec-1", Date: "2024-01-24", StartTime: "10:00", EndTime: "11:30", Method: session.MethodHybrid,
	}}
	v := NewLocalValidator(sessions, enrolledIn{"stu-1": "sec-1"}, token.NewIssuer("k", 30*time.Second), clock)
	records := newMemRecords()
	pub := &capturePublisher{}
	g := NewGateway(v, records, nil, pub, clock)

	first, err := g.Mark(ctx, MarkRequest{SessionID: "s-hybrid", StudentID: "stu-1", Method: session.MethodQRCode})
	require.NoError(t, err)

	now = markTime.Add(15 * time.Minute)
	second, err := g.Mark(ctx, MarkRequest{
		SessionID: "s-hybrid",
		StudentID: "stu-1",
		Method:    session.MethodFacialRecognition,
		ImageURL:  "https://cdn.example.edu/selfie.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := records.ListBySession(ctx, "s-hybrid")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, session.MethodFacialRecognition, list[0].Method)
	assert.Equal(t, markTime.Add(15*time.Minute), list[0].MarkedAt)
	assert.Equal(t, "https://cdn.example.edu/selfie.jpg", list[0].ImageURL)

	require.Len(t, pub.events, 2)
	assert.Equal(t, realtime.Insert, pub.events[0].Type)
	assert.Equal(t, realtime.Update, pub.events[1].Type)
	assert.Equal(t, Table, pub.events[0].Table)
	assert.Equal(t, "stu-1", pub.events[0].New["student_id"])
	assert.Equal(t, "facial_recognition", pub.events[1].New["method"])
}

func TestMarkDefaultsToQRCode(t *testing.T) {
	g, _, _, _ := newTestGateway(&stubValidator{})
	rec, err := g.Mark(context.Background(), MarkRequest{SessionID: "s-1", StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Equal(t, session.MethodQRCode, rec.Method)
	assert.Equal(t, markTime, rec.MarkedAt)
}

func TestMarkRejected(t *testing.T) {
	ctx := context.Background()
	v := &stubValidator{err: apperr.NewMarkRejected("session has already ended")}
	g, records, _, pub := newTestGateway(v)

	_, err := g.Mark(ctx, MarkRequest{SessionID: "s-1", StudentID: "stu-1", Method: session.MethodQRCode})
	var rejected *apperr.MarkRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "session has already ended", rejected.Message)

	list, _ := records.ListBySession(ctx, "s-1")
	assert.Empty(t, list)
	assert.Empty(t, pub.events)
}

func TestMarkChecksRequestBeforeValidating(t *testing.T) {
	tests := []struct {
		name  string
		req   MarkRequest
		field string
	}{
		{name: "no session", req: MarkRequest{StudentID: "stu-1"}, field: "session_id"},
		{name: "no student", req: MarkRequest{SessionID: "s-1"}, field: "student_id"},
		{name: "unknown method", req: MarkRequest{SessionID: "s-1", StudentID: "stu-1", Method: "nfc"}, field: "method"},
		{name: "face without image", req: MarkRequest{SessionID: "s-1", StudentID: "stu-1", Method: session.MethodFacialRecognition}, field: "image_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &stubValidator{}
			g, _, _, _ := newTestGateway(v)
			_, err := g.Mark(context.Background(), tt.req)
			var ve apperr.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.Zero(t, v.calls)
		})
	}
}

func TestMarkQueuesFaceCheck(t *testing.T) {
	g, _, q, _ := newTestGateway(&stubValidator{})
	rec, err := g.Mark(context.Background(), MarkRequest{
		SessionID: "s-1",
		StudentID: "stu-1",
		Method:    session.MethodHybrid,
		ImageURL:  "https://cdn.example.edu/selfie.jpg",
	})
	require.NoError(t, err)

	require.Len(t, q.msgs, 1)
	assert.Equal(t, JobFaceVerify, q.msgs[0].Type)
	var job FaceJob
	require.NoError(t, q.msgs[0].Decode(&job))
	assert.Equal(t, FaceJob{RecordID: rec.ID, StudentID: "stu-1", ImageURL: "https://cdn.example.edu/selfie.jpg"}, job)
}

func TestMarkWithoutImageSkipsFaceCheck(t *testing.T) {
	g, _, q, _ := newTestGateway(&stubValidator{})
	_, err := g.Mark(context.Background(), MarkRequest{SessionID: "s-1", StudentID: "stu-1", Method: session.MethodHybrid})
	require.NoError(t, err)
	assert.Empty(t, q.msgs)
}
