package repository

import (
	"context"

	"github.com/zfogg/hushmap/internal/models"
	"gorm.io/gorm"
)

// ReportRepository handles moderation reports
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	if report == nil || report.ReporterID == "" {
		return ErrInvalidInput
	}
	if (report.PostID == nil) == (report.ReplyID == nil) {
		return ErrInvalidInput
	}
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	return r.db.WithContext(ctx).Create(report).Error
}
