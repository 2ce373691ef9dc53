package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

// SubmissionSource is the read contract of the remote submission store.
type SubmissionSource interface {
	// ListLatestFirst returns every submission ordered by created_at descending.
	ListLatestFirst(ctx context.Context) ([]models.Submission, error)
}

type submissionRepository struct {
	db    *gorm.DB
	table string
}

// NewSubmissionRepository instantiates a read-only repository over the given table.
// An empty table name falls back to student_submissions.
func NewSubmissionRepository(db *gorm.DB, table string) SubmissionSource {
	table = strings.TrimSpace(table)
	if table == "" {
		table = models.SubmissionTable
	}
	return &submissionRepository{db: db, table: table}
}

func (r *submissionRepository) ListLatestFirst(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.db.WithContext(ctx).
		Table(r.table).
		Order("created_at DESC NULLS LAST").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.table, err)
	}

	return submissions, nil
}
