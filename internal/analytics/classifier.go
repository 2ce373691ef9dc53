// Package analytics holds the pure read pipeline over submission snapshots:
// classification of graded answers, long-form reshaping and the summary,
// aggregate and drill-down queries.
package analytics

import (
	"strings"

	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

// Status is the binary outcome derived from a feedback string.
type Status string

const (
	// StatusCorrect marks feedback that opens with the correctness marker.
	StatusCorrect Status = "correct"
	// StatusNeedsImprovement marks every other present feedback value.
	StatusNeedsImprovement Status = "needs_improvement"
)

// DefaultMarker is the leading token that flags a correct answer.
const DefaultMarker = "O"

// Classifier derives a status from a feedback value. The boolean is false
// when the feedback is absent and no status should be produced.
type Classifier interface {
	Classify(feedback models.Text) (Status, bool)
}

// MarkerClassifier classifies by the leading marker convention of the grader.
type MarkerClassifier struct {
	Marker string
}

// NewMarkerClassifier returns a classifier for the given marker, falling back to "O".
// Surrounding whitespace is dropped since feedback is compared after trimming.
func NewMarkerClassifier(marker string) MarkerClassifier {
	return MarkerClassifier{Marker: normalizeMarker(marker)}
}

func normalizeMarker(marker string) string {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return DefaultMarker
	}
	return marker
}

// Classify implements Classifier. A column that is missing from the row
// yields no status. NULL, empty, whitespace-only and non-textual feedback
// never counts as correct.
func (c MarkerClassifier) Classify(feedback models.Text) (Status, bool) {
	if !feedback.Present() {
		return "", false
	}
	if feedback.Null || feedback.NonText {
		return StatusNeedsImprovement, true
	}

	marker := normalizeMarker(c.Marker)

	if strings.HasPrefix(strings.TrimSpace(feedback.String), marker) {
		return StatusCorrect, true
	}
	return StatusNeedsImprovement, true
}

// ClassifiedRecord is a submission together with its per-question statuses.
// An empty entry in Statuses means the question had no feedback.
type ClassifiedRecord struct {
	models.Submission
	Statuses [models.QuestionCount]Status
}

// Status returns the status for the 1-based question index.
func (r ClassifiedRecord) Status(question int) (Status, bool) {
	if question < 1 || question > models.QuestionCount {
		return "", false
	}
	status := r.Statuses[question-1]
	return status, status != ""
}

// ClassifyAll classifies every record without touching the input slice.
func ClassifyAll(records []models.Submission, classifier Classifier) []ClassifiedRecord {
	if classifier == nil {
		classifier = NewMarkerClassifier(DefaultMarker)
	}

	classified := make([]ClassifiedRecord, 0, len(records))
	for _, record := range records {
		item := ClassifiedRecord{Submission: record}
		for question := 1; question <= models.QuestionCount; question++ {
			if status, ok := classifier.Classify(record.Question(question).Feedback); ok {
				item.Statuses[question-1] = status
			}
		}
		classified = append(classified, item)
	}
	return classified
}
