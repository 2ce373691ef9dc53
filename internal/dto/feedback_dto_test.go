package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-feedback-insights/internal/analytics"
	"github.com/noah-isme/gema-feedback-insights/internal/models"
)

func TestNewSubmissionDetailKeepsTextAndLabels(t *testing.T) {
	createdAt := time.Date(2025, 5, 3, 1, 2, 3, 0, time.UTC)
	records := analytics.ClassifyAll([]models.Submission{{
		StudentID: "20231",
		CreatedAt: models.NewTimestamp(createdAt),
		Answer1:   models.NewText("P > 0 & T < 5"),
		Feedback1: models.NewText("O: correct reasoning"),
		Answer2:   models.NewText("a<b and c>d"),
		Feedback2: models.NullText(),
	}}, nil)

	detail := NewSubmissionDetail(records[0], analytics.NewQuestionLabels("Q1", "Q2", "Q3"))
	require.Equal(t, "20231", detail.StudentID)
	require.True(t, detail.CreatedAt.Equal(createdAt))
	require.Len(t, detail.Answers, 3)

	first := detail.Answers[0]
	require.Equal(t, "Q1", first.Label)
	require.Equal(t, "P > 0 & T < 5", *first.Answer)
	require.Equal(t, "O: correct reasoning", *first.Feedback)
	require.Equal(t, string(analytics.StatusCorrect), *first.Status)

	second := detail.Answers[1]
	require.Equal(t, "a<b and c>d", *second.Answer)
	require.Nil(t, second.Feedback, "NULL feedback renders as null")
	require.Equal(t, string(analytics.StatusNeedsImprovement), *second.Status)

	third := detail.Answers[2]
	require.Nil(t, third.Answer)
	require.Nil(t, third.Feedback)
	require.Nil(t, third.Status)
}

func TestNewSubmissionRowKeepsTextVerbatim(t *testing.T) {
	texts := []string{
		"P > 0 & T < 5",
		"a<b and c>d",
		"O: pressure<volume is wrong",
		"answer in 'kPa'",
		"<b>particles</b> speed up",
	}

	for _, text := range texts {
		row := NewSubmissionRow(models.Submission{
			StudentID: "20231",
			Answer1:   models.NewText(text),
			Feedback3: models.NewText(text),
		})
		require.Equal(t, text, *row.Answer1)
		require.Equal(t, text, *row.Feedback3)
		require.Nil(t, row.Answer2)

		payload, err := json.Marshal(row)
		require.NoError(t, err)
		var decoded SubmissionRow
		require.NoError(t, json.Unmarshal(payload, &decoded))
		require.Equal(t, text, *decoded.Answer1)
	}
}

func TestNewQuestionBreakdownResponseKeepsQuestionOrder(t *testing.T) {
	labels := analytics.NewQuestionLabels("Q1", "Q2", "Q3")
	counts := map[analytics.QuestionStatusKey]int{
		{QuestionLabel: "Q3", Status: analytics.StatusCorrect}:          4,
		{QuestionLabel: "Q1", Status: analytics.StatusNeedsImprovement}: 2,
		{QuestionLabel: "Q1", Status: analytics.StatusCorrect}:          1,
	}

	response := NewQuestionBreakdownResponse(counts, labels)
	require.Equal(t, []QuestionBreakdownItem{
		{Question: 1, Label: "Q1", Correct: 1, NeedsImprovement: 2, Total: 3},
		{Question: 2, Label: "Q2"},
		{Question: 3, Label: "Q3", Correct: 4, Total: 4},
	}, response.Questions)
}

func TestNewSummaryResponseFlagsEmpty(t *testing.T) {
	require.True(t, NewSummaryResponse(analytics.Summary{}).Empty)
	require.False(t, NewSummaryResponse(analytics.Summary{SubmissionCount: 1, StudentCount: 1}).Empty)
}
