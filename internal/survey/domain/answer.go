package domain

import (
	"strconv"
	"strings"
)

// Answer error kinds returned by ValidateAnswer.
const (
	KindInvalidOption    = "invalid_option"
	KindInvalidRating    = "invalid_rating"
	KindRatingOutOfRange = "rating_out_of_range"
	KindEmptyText        = "empty_text"
	KindUnsupportedType  = "unsupported_type"
)

// ValidationResult is the outcome of validating a submitted answer against a question.
type ValidationResult struct {
	OK         bool
	Normalized string
	Kind       string // one of the Kind constants when !OK
}

// ValidateAnswer checks answer against the question's shape and returns the
// normalized answer on success. It never rejects on correctness, only on shape:
// the answer is a soft signal, not a human/bot gate.
func ValidateAnswer(q *Question, answer string) ValidationResult {
	if q == nil {
		return ValidationResult{Kind: KindUnsupportedType}
	}
	switch q.Type {
	case QuestionTypeMultipleChoice, QuestionTypeImageChoice:
		for _, o := range q.Options {
			if o.ID == answer {
				return ValidationResult{OK: true, Normalized: answer}
			}
		}
		return ValidationResult{Kind: KindInvalidOption}
	case QuestionTypeRating:
		v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return ValidationResult{Kind: KindInvalidRating}
		}
		if q.ScaleMin != nil && v < float64(*q.ScaleMin) {
			return ValidationResult{Kind: KindRatingOutOfRange}
		}
		if q.ScaleMax != nil && v > float64(*q.ScaleMax) {
			return ValidationResult{Kind: KindRatingOutOfRange}
		}
		return ValidationResult{OK: true, Normalized: strings.TrimSpace(answer)}
	case QuestionTypeText:
		trimmed := strings.TrimSpace(answer)
		if trimmed == "" {
			return ValidationResult{Kind: KindEmptyText}
		}
		if len(trimmed) > MaxTextAnswerLen {
			trimmed = trimmed[:MaxTextAnswerLen]
		}
		return ValidationResult{OK: true, Normalized: trimmed}
	default:
		return ValidationResult{Kind: KindUnsupportedType}
	}
}
