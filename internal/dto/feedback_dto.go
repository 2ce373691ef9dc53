package dto

import (
	"time"

	"github.com/noah-isme/gema-feedback-insights/internal/analytics"
	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

// SnapshotMeta describes the snapshot a response was computed from.
type SnapshotMeta struct {
	FetchedAt *time.Time `json:"fetched_at"`
}

// SummaryResponse carries the headline metrics of the dashboard.
type SummaryResponse struct {
	Empty           bool       `json:"empty"`
	StudentCount    int        `json:"student_count"`
	SubmissionCount int        `json:"submission_count"`
	LastSubmittedAt *time.Time `json:"last_submitted_at"`
}

// NewSummaryResponse converts analytics metrics into the API shape.
func NewSummaryResponse(summary analytics.Summary) SummaryResponse {
	return SummaryResponse{
		Empty:           summary.SubmissionCount == 0,
		StudentCount:    summary.StudentCount,
		SubmissionCount: summary.SubmissionCount,
		LastSubmittedAt: summary.LastSubmittedAt,
	}
}

// QuestionBreakdownItem is one bar group of the per-question chart.
type QuestionBreakdownItem struct {
	Question         int    `json:"question"`
	Label            string `json:"label"`
	Correct          int    `json:"correct"`
	NeedsImprovement int    `json:"needs_improvement"`
	Total            int    `json:"total"`
}

// QuestionBreakdownResponse lists per-question status counts in question order.
type QuestionBreakdownResponse struct {
	Questions []QuestionBreakdownItem `json:"questions"`
}

// NewQuestionBreakdownResponse lays aggregated counts out in question order.
func NewQuestionBreakdownResponse(counts map[analytics.QuestionStatusKey]int, labels analytics.QuestionLabels) QuestionBreakdownResponse {
	items := make([]QuestionBreakdownItem, 0, models.QuestionCount)
	for question := 1; question <= models.QuestionCount; question++ {
		label := labels.Label(question)
		correct := counts[analytics.QuestionStatusKey{QuestionLabel: label, Status: analytics.StatusCorrect}]
		needsImprovement := counts[analytics.QuestionStatusKey{QuestionLabel: label, Status: analytics.StatusNeedsImprovement}]
		items = append(items, QuestionBreakdownItem{
			Question:         question,
			Label:            label,
			Correct:          correct,
			NeedsImprovement: needsImprovement,
			Total:            correct + needsImprovement,
		})
	}
	return QuestionBreakdownResponse{Questions: items}
}

// AnswerDetail is a single graded answer inside a submission.
type AnswerDetail struct {
	Question int     `json:"question"`
	Label    string  `json:"label"`
	Answer   *string `json:"answer"`
	Feedback *string `json:"feedback"`
	Status   *string `json:"status"`
}

// SubmissionDetail is a classified submission prepared for drill-down.
type SubmissionDetail struct {
	StudentID string         `json:"student_id"`
	CreatedAt *time.Time     `json:"created_at"`
	Answers   []AnswerDetail `json:"answers"`
}

// NewSubmissionDetail converts a classified record. Free text is passed through
// verbatim; encoding for display is left to the client.
func NewSubmissionDetail(record analytics.ClassifiedRecord, labels analytics.QuestionLabels) SubmissionDetail {
	answers := make([]AnswerDetail, 0, models.QuestionCount)
	for question := 1; question <= models.QuestionCount; question++ {
		response := record.Question(question)
		var status *string
		if value, ok := record.Status(question); ok {
			text := string(value)
			status = &text
		}
		answers = append(answers, AnswerDetail{
			Question: question,
			Label:    labels.Label(question),
			Answer:   response.Answer.Ptr(),
			Feedback: response.Feedback.Ptr(),
			Status:   status,
		})
	}

	return SubmissionDetail{
		StudentID: record.StudentID,
		CreatedAt: record.CreatedAt.Ptr(),
		Answers:   answers,
	}
}

// StudentDetailResponse lists a student's submissions, most recent first.
type StudentDetailResponse struct {
	StudentID   string             `json:"student_id"`
	Submissions []SubmissionDetail `json:"submissions"`
}

// StudentDetailRequest validates the drill-down path parameter.
type StudentDetailRequest struct {
	StudentID string `validate:"required,max=128"`
}

// StudentListResponse feeds the student picker.
type StudentListResponse struct {
	Students []string `json:"students"`
}

// SubmissionRow is one row of the full submissions table.
type SubmissionRow struct {
	StudentID string     `json:"student_id"`
	Answer1   *string    `json:"answer_1"`
	Feedback1 *string    `json:"feedback_1"`
	Answer2   *string    `json:"answer_2"`
	Feedback2 *string    `json:"feedback_2"`
	Answer3   *string    `json:"answer_3"`
	Feedback3 *string    `json:"feedback_3"`
	CreatedAt *time.Time `json:"created_at"`
}

// NewSubmissionRow converts a submission into a table row with free text verbatim.
func NewSubmissionRow(submission models.Submission) SubmissionRow {
	return SubmissionRow{
		StudentID: submission.StudentID,
		Answer1:   submission.Answer1.Ptr(),
		Feedback1: submission.Feedback1.Ptr(),
		Answer2:   submission.Answer2.Ptr(),
		Feedback2: submission.Feedback2.Ptr(),
		Answer3:   submission.Answer3.Ptr(),
		Feedback3: submission.Feedback3.Ptr(),
		CreatedAt: submission.CreatedAt.Ptr(),
	}
}

// SubmissionTableResponse is the "show all" view of the snapshot.
type SubmissionTableResponse struct {
	Items []SubmissionRow `json:"items"`
}

// RefreshResponse reports the snapshot produced by a forced refresh.
type RefreshResponse struct {
	SubmissionCount int        `json:"submission_count"`
	FetchedAt       *time.Time `json:"fetched_at"`
}
