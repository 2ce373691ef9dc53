package analytics

import (
	"fmt"

	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

// QuestionLabels maps question indexes (1-based position) to display labels.
type QuestionLabels [models.QuestionCount]string

// DefaultQuestionLabels are the labels of the physics unit the dashboard was built for.
var DefaultQuestionLabels = QuestionLabels{
	"Question 1 (Temperature and particles)",
	"Question 2 (Boyle's law)",
	"Question 3 (Heat transfer)",
}

// NewQuestionLabels fills the provided labels in order; blanks fall back to "Question N".
func NewQuestionLabels(labels ...string) QuestionLabels {
	var result QuestionLabels
	for i := range result {
		if i < len(labels) && labels[i] != "" {
			result[i] = labels[i]
			continue
		}
		result[i] = fmt.Sprintf("Question %d", i+1)
	}
	return result
}

// Label returns the label for the 1-based question index.
func (l QuestionLabels) Label(question int) string {
	if question < 1 || question > len(l) {
		return fmt.Sprintf("Question %d", question)
	}
	if l[question-1] == "" {
		return fmt.Sprintf("Question %d", question)
	}
	return l[question-1]
}

// LongFormRow is one (student, question) pair in long form.
type LongFormRow struct {
	StudentID     string
	Question      int
	QuestionLabel string
	Status        Status
}

// ToLongForm unpivots classified records, emitting one row per present status
// in input order and then ascending question order.
func ToLongForm(records []ClassifiedRecord, labels QuestionLabels) []LongFormRow {
	rows := make([]LongFormRow, 0, len(records)*models.QuestionCount)
	for _, record := range records {
		for question := 1; question <= models.QuestionCount; question++ {
			status, ok := record.Status(question)
			if !ok {
				continue
			}
			rows = append(rows, LongFormRow{
				StudentID:     record.StudentID,
				Question:      question,
				QuestionLabel: labels.Label(question),
				Status:        status,
			})
		}
	}
	return rows
}
