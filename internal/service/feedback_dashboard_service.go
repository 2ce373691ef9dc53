package service

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-feedback-insights/internal/analytics"
	"github.com/noah-isme/gema-feedback-insights/internal/cache"
	"github.com/noah-isme/gema-feedback-insights/internal/dto"
)

// Snapshotter supplies the cached submission snapshot. The rows and their read
// instant come back from one call so the meta block always describes the rows
// the response was computed from.
type Snapshotter interface {
	FetchSnapshot(ctx context.Context) cache.Snapshot
	RefreshSnapshot(ctx context.Context) cache.Snapshot
}

// FeedbackDashboardService serves the instructor dashboard from the cached snapshot.
type FeedbackDashboardService interface {
	Summary(ctx context.Context) (dto.SummaryResponse, dto.SnapshotMeta, error)
	QuestionBreakdown(ctx context.Context) (dto.QuestionBreakdownResponse, dto.SnapshotMeta, error)
	StudentDetail(ctx context.Context, studentID string) (dto.StudentDetailResponse, dto.SnapshotMeta, error)
	Students(ctx context.Context) (dto.StudentListResponse, dto.SnapshotMeta, error)
	Submissions(ctx context.Context) (dto.SubmissionTableResponse, dto.SnapshotMeta, error)
	Refresh(ctx context.Context) (dto.RefreshResponse, error)
}

type feedbackDashboardService struct {
	snapshots   Snapshotter
	classifier  analytics.Classifier
	labels      analytics.QuestionLabels
	broadcaster RefreshBroadcaster
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewFeedbackDashboardService wires the snapshot cache to the analytics pipeline.
// broadcaster may be nil when the service runs as a single replica.
func NewFeedbackDashboardService(snapshots Snapshotter, classifier analytics.Classifier, labels analytics.QuestionLabels, broadcaster RefreshBroadcaster, logger zerolog.Logger) FeedbackDashboardService {
	if classifier == nil {
		classifier = analytics.NewMarkerClassifier(analytics.DefaultMarker)
	}

	return &feedbackDashboardService{
		snapshots:   snapshots,
		classifier:  classifier,
		labels:      labels,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "feedback_dashboard_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-feedback-insights/internal/service/feedback_dashboard"),
	}
}

func (s *feedbackDashboardService) Summary(ctx context.Context) (dto.SummaryResponse, dto.SnapshotMeta, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.summary")
	defer span.End()

	records, meta, err := s.classified(ctx)
	if err != nil {
		return dto.SummaryResponse{}, meta, err
	}

	if len(records) == 0 {
		return dto.SummaryResponse{Empty: true}, meta, nil
	}

	summary := analytics.SummaryMetrics(records)
	span.SetAttributes(
		attribute.Int("feedback.student_count", summary.StudentCount),
		attribute.Int("feedback.submission_count", summary.SubmissionCount),
	)
	return dto.NewSummaryResponse(summary), meta, nil
}

func (s *feedbackDashboardService) QuestionBreakdown(ctx context.Context) (dto.QuestionBreakdownResponse, dto.SnapshotMeta, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.question_breakdown")
	defer span.End()

	records, meta, err := s.classified(ctx)
	if err != nil {
		return dto.QuestionBreakdownResponse{}, meta, err
	}

	rows := analytics.ToLongForm(records, s.labels)
	span.SetAttributes(attribute.Int("feedback.long_form_rows", len(rows)))

	return dto.NewQuestionBreakdownResponse(analytics.AggregateByQuestion(rows), s.labels), meta, nil
}

func (s *feedbackDashboardService) StudentDetail(ctx context.Context, studentID string) (dto.StudentDetailResponse, dto.SnapshotMeta, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.student_detail")
	defer span.End()

	records, meta, err := s.classified(ctx)
	if err != nil {
		return dto.StudentDetailResponse{}, meta, err
	}

	detail := analytics.DetailForStudent(records, studentID)
	span.SetAttributes(attribute.Int("feedback.student_submissions", len(detail)))

	submissions := make([]dto.SubmissionDetail, 0, len(detail))
	for _, record := range detail {
		submissions = append(submissions, dto.NewSubmissionDetail(record, s.labels))
	}

	return dto.StudentDetailResponse{StudentID: studentID, Submissions: submissions}, meta, nil
}

func (s *feedbackDashboardService) Students(ctx context.Context) (dto.StudentListResponse, dto.SnapshotMeta, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.students")
	defer span.End()

	records, meta, err := s.classified(ctx)
	if err != nil {
		return dto.StudentListResponse{}, meta, err
	}

	return dto.StudentListResponse{Students: analytics.Students(records)}, meta, nil
}

func (s *feedbackDashboardService) Submissions(ctx context.Context) (dto.SubmissionTableResponse, dto.SnapshotMeta, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.submissions")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return dto.SubmissionTableResponse{}, dto.SnapshotMeta{}, err
	}

	snapshot := s.snapshots.FetchSnapshot(ctx)
	items := make([]dto.SubmissionRow, 0, len(snapshot.Rows))
	for _, submission := range snapshot.Rows {
		items = append(items, dto.NewSubmissionRow(submission))
	}

	return dto.SubmissionTableResponse{Items: items}, snapshotMeta(snapshot), nil
}

func (s *feedbackDashboardService) Refresh(ctx context.Context) (dto.RefreshResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.refresh")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return dto.RefreshResponse{}, err
	}

	snapshot := s.snapshots.RefreshSnapshot(ctx)

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to broadcast snapshot refresh")
			span.RecordError(err)
		}
	}

	span.SetAttributes(attribute.Int("feedback.submission_count", len(snapshot.Rows)))
	return dto.RefreshResponse{
		SubmissionCount: len(snapshot.Rows),
		FetchedAt:       snapshotMeta(snapshot).FetchedAt,
	}, nil
}

func (s *feedbackDashboardService) classified(ctx context.Context) ([]analytics.ClassifiedRecord, dto.SnapshotMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, dto.SnapshotMeta{}, err
	}

	snapshot := s.snapshots.FetchSnapshot(ctx)
	return analytics.ClassifyAll(snapshot.Rows, s.classifier), snapshotMeta(snapshot), nil
}

func snapshotMeta(snapshot cache.Snapshot) dto.SnapshotMeta {
	fetchedAt, ok := snapshot.Fetched()
	if !ok {
		return dto.SnapshotMeta{}
	}
	return dto.SnapshotMeta{FetchedAt: &fetchedAt}
}
