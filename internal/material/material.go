package material

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/storage"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

// Material is a file attached to a course.
type Material struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	Title      string    `db:"title" json:"title"`
	FileName   string    `db:"file_name" json:"file_name"`
	URL        string    `db:"url" json:"url"`
	UploadedBy string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Repository stores course material metadata.
type Repository interface {
	Insert(ctx context.Context, m Material) (Material, error)
	List(ctx context.Context, courseID string) ([]Material, error)
}

// PGRepository persists materials in Postgres.
type PGRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{db: db}
}

func (r *PGRepository) Insert(ctx context.Context, m Material) (Material, error) {
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO course_materials (course_id, title, file_name, url, uploaded_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, m.CourseID, m.Title, m.FileName, m.URL, m.UploadedBy)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return Material{}, store.Translate("insert material", err)
	}
	return m, nil
}

func (r *PGRepository) List(ctx context.Context, courseID string) ([]Material, error) {
	out := []Material{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, course_id, title, file_name, url, uploaded_by, created_at
		FROM course_materials WHERE course_id = $1 ORDER BY created_at DESC
	`, courseID)
	if err != nil {
		return nil, store.Translate("list materials", err)
	}
	return out, nil
}

// Service uploads course materials to object storage and records them.
type Service struct {
	repo  Repository
	store storage.Storage
}

func NewService(repo Repository, st storage.Storage) *Service {
	return &Service{repo: repo, store: st}
}

// Upload writes the file under courses/<course>/<uuid><ext> and stores its public URL.
func (s *Service) Upload(ctx context.Context, courseID, uploaderID, title, fileName, contentType string, data io.Reader) (Material, error) {
	if strings.TrimSpace(courseID) == "" {
		return Material{}, apperr.NewValidationError("course_id", "this field is required")
	}
	fileName = path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if fileName == "" || fileName == "." || fileName == "/" {
		return Material{}, apperr.NewValidationError("file", "this field is required")
	}
	if strings.TrimSpace(title) == "" {
		title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}

	key := fmt.Sprintf("courses/%s/%s%s", courseID, uuid.NewString(), strings.ToLower(path.Ext(fileName)))
	url, err := s.store.Upload(ctx, key, data, contentType)
	if err != nil {
		return Material{}, fmt.Errorf("upload material: %w", err)
	}

	m, err := s.repo.Insert(ctx, Material{
		CourseID:   courseID,
		Title:      title,
		FileName:   fileName,
		URL:        url,
		UploadedBy: uploaderID,
	})
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("material uploaded but not recorded")
		return Material{}, err
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, courseID string) ([]Material, error) {
	return s.repo.List(ctx, courseID)
}
