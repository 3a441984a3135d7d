package domain

import "time"

// QuestionType identifies how a survey question is answered and validated.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeImageChoice    QuestionType = "image_choice"
	QuestionTypeRating         QuestionType = "rating"
	QuestionTypeText           QuestionType = "text"
)

// MaxTextAnswerLen is the cap applied to free-text answers after trimming.
const MaxTextAnswerLen = 2000

// Option is a selectable answer for choice questions.
type Option struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Question is a survey question. ClientID is empty for global pool questions.
// JSON tags define the snapshot shape frozen onto a challenge session at
// creation; validation always runs against the snapshot, never the live bank.
type Question struct {
	ID        string       `json:"id"`
	ClientID  string       `json:"client_id,omitempty"`
	Text      string       `json:"question_text"`
	Type      QuestionType `json:"question_type"`
	Options   []Option     `json:"options,omitempty"`
	ScaleMin  *int         `json:"scale_min,omitempty"`
	ScaleMax  *int         `json:"scale_max,omitempty"`
	Archived  bool         `json:"-"`
	CreatedAt time.Time    `json:"-"`
}

// Fallback returns the built-in yes/no question used when a client has no
// questions available, so challenge creation never fails for lack of content.
func Fallback() *Question {
	return &Question{
		Text: "Please confirm you are human",
		Type: QuestionTypeMultipleChoice,
		Options: []Option{
			{ID: "yes", Text: "Yes"},
			{ID: "no", Text: "No"},
		},
	}
}
