package analytics

import "time"

// Summary holds the headline metrics of a snapshot.
type Summary struct {
	StudentCount    int
	SubmissionCount int
	// LastSubmittedAt is nil when no record carries a timestamp.
	LastSubmittedAt *time.Time
}

// SummaryMetrics counts distinct students and submissions and finds the most
// recent timestamp. Records without created_at are counted but never chosen.
func SummaryMetrics(records []ClassifiedRecord) Summary {
	students := make(map[string]struct{}, len(records))
	var latest *time.Time

	for _, record := range records {
		students[record.StudentID] = struct{}{}
		if !record.CreatedAt.Valid {
			continue
		}
		if latest == nil || record.CreatedAt.Time.After(*latest) {
			instant := record.CreatedAt.Time
			latest = &instant
		}
	}

	return Summary{
		StudentCount:    len(students),
		SubmissionCount: len(records),
		LastSubmittedAt: latest,
	}
}

// QuestionStatusKey groups long-form rows for aggregation.
type QuestionStatusKey struct {
	QuestionLabel string
	Status        Status
}

// AggregateByQuestion counts long-form rows per (question label, status).
func AggregateByQuestion(rows []LongFormRow) map[QuestionStatusKey]int {
	counts := make(map[QuestionStatusKey]int)
	for _, row := range rows {
		counts[QuestionStatusKey{QuestionLabel: row.QuestionLabel, Status: row.Status}]++
	}
	return counts
}

// DetailForStudent returns the student's records in source order.
func DetailForStudent(records []ClassifiedRecord, studentID string) []ClassifiedRecord {
	detail := make([]ClassifiedRecord, 0)
	for _, record := range records {
		if record.StudentID == studentID {
			detail = append(detail, record)
		}
	}
	return detail
}

// Students lists distinct student ids in order of first appearance.
func Students(records []ClassifiedRecord) []string {
	seen := make(map[string]struct{}, len(records))
	students := make([]string, 0)
	for _, record := range records {
		if _, ok := seen[record.StudentID]; ok {
			continue
		}
		seen[record.StudentID] = struct{}{}
		students = append(students, record.StudentID)
	}
	return students
}
