package attendance

import (
	"context"
	"fmt"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/faceclient"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/metrics"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/queue"
)

// JobFaceVerify is the queue message type for face checks of recorded marks.
const JobFaceVerify = "face_verify"

// FaceJob asks the worker to score a mark's image against the student's enrolled face.
type FaceJob struct {
	RecordID  string `json:"record_id"`
	StudentID string `json:"student_id"`
	ImageURL  string `json:"image_url"`
}

// FaceVerifier performs 1:1 face verification.
type FaceVerifier interface {
	Verify(ctx context.Context, userID, imageURL string) (*faceclient.VerifyResult, error)
}

// ConfidenceWriter stores a record's confidence score.
type ConfidenceWriter interface {
	SetConfidence(ctx context.Context, id string, score float64) error
}

// FaceProcessor handles face_verify jobs.
type FaceProcessor struct {
	face    FaceVerifier
	records ConfidenceWriter
}

func NewFaceProcessor(face FaceVerifier, records ConfidenceWriter) *FaceProcessor {
	return &FaceProcessor{face: face, records: records}
}

// Handle verifies the image of one job and stores the similarity as confidence.
func (p *FaceProcessor) Handle(ctx context.Context, msg queue.Message) (float64, error) {
	if msg.Type != JobFaceVerify {
		return 0, fmt.Errorf("unexpected job type %q", msg.Type)
	}
	var job FaceJob
	if err := msg.Decode(&job); err != nil {
		return 0, fmt.Errorf("decode face job: %w", err)
	}
	res, err := p.face.Verify(ctx, job.StudentID, job.ImageURL)
	if err != nil {
		return 0, fmt.Errorf("face verify for record %s: %w", job.RecordID, err)
	}
	score := res.Similarity
	if !res.Verified {
		score = 0
	}
	metrics.FaceChecks.Observe(score)
	if err := p.records.SetConfidence(ctx, job.RecordID, score); err != nil {
		return 0, err
	}
	return score, nil
}
