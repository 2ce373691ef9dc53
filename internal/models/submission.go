package models

// QuestionCount is the number of answer/feedback column pairs carried by a submission row.
const QuestionCount = 3

// SubmissionTable is the default name of the remote submissions table.
const SubmissionTable = "student_submissions"

// Submission represents one graded free-response submission as stored remotely.
// Every per-question column is nullable so a row with missing columns still scans.
type Submission struct {
	StudentID string    `gorm:"column:student_id;size:128;index" json:"student_id"`
	CreatedAt Timestamp `gorm:"column:created_at;autoCreateTime:false" json:"created_at"`
	Answer1   Text      `gorm:"column:answer_1" json:"answer_1"`
	Feedback1 Text      `gorm:"column:feedback_1" json:"feedback_1"`
	Answer2   Text      `gorm:"column:answer_2" json:"answer_2"`
	Feedback2 Text      `gorm:"column:feedback_2" json:"feedback_2"`
	Answer3   Text      `gorm:"column:answer_3" json:"answer_3"`
	Feedback3 Text      `gorm:"column:feedback_3" json:"feedback_3"`
}

// TableName pins the gorm table name.
func (Submission) TableName() string {
	return SubmissionTable
}

// QuestionResponse pairs a student's answer with the automated feedback for one question.
type QuestionResponse struct {
	Answer   Text
	Feedback Text
}

// Question returns the answer/feedback pair for the 1-based question index.
// Out-of-range indexes yield an empty (absent) response.
func (s Submission) Question(index int) QuestionResponse {
	switch index {
	case 1:
		return QuestionResponse{Answer: s.Answer1, Feedback: s.Feedback1}
	case 2:
		return QuestionResponse{Answer: s.Answer2, Feedback: s.Feedback2}
	case 3:
		return QuestionResponse{Answer: s.Answer3, Feedback: s.Feedback3}
	default:
		return QuestionResponse{}
	}
}
