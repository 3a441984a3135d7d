package domain

import (
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestValidateAnswer_MultipleChoice(t *testing.T) {
	q := &Question{
		Type:    QuestionTypeMultipleChoice,
		Options: []Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
	}
	if res := ValidateAnswer(q, "a"); !res.OK || res.Normalized != "a" {
		t.Errorf("valid option: %+v", res)
	}
	if res := ValidateAnswer(q, "z"); res.OK || res.Kind != KindInvalidOption {
		t.Errorf("unknown option: %+v", res)
	}
	if res := ValidateAnswer(q, ""); res.OK || res.Kind != KindInvalidOption {
		t.Errorf("empty answer: %+v", res)
	}
}

func TestValidateAnswer_ImageChoice(t *testing.T) {
	q := &Question{
		Type:    QuestionTypeImageChoice,
		Options: []Option{{ID: "img1", ImageURL: "https://example.com/1.png"}},
	}
	if res := ValidateAnswer(q, "img1"); !res.OK {
		t.Errorf("valid image option: %+v", res)
	}
	if res := ValidateAnswer(q, "img2"); res.OK || res.Kind != KindInvalidOption {
		t.Errorf("unknown image option: %+v", res)
	}
}

func TestValidateAnswer_Rating(t *testing.T) {
	q := &Question{Type: QuestionTypeRating, ScaleMin: intPtr(1), ScaleMax: intPtr(5)}

	if res := ValidateAnswer(q, "3"); !res.OK || res.Normalized != "3" {
		t.Errorf("in-range rating: %+v", res)
	}
	if res := ValidateAnswer(q, " 5 "); !res.OK || res.Normalized != "5" {
		t.Errorf("boundary rating with spaces: %+v", res)
	}
	if res := ValidateAnswer(q, "0"); res.OK || res.Kind != KindRatingOutOfRange {
		t.Errorf("below min: %+v", res)
	}
	if res := ValidateAnswer(q, "6"); res.OK || res.Kind != KindRatingOutOfRange {
		t.Errorf("above max: %+v", res)
	}
	if res := ValidateAnswer(q, "three"); res.OK || res.Kind != KindInvalidRating {
		t.Errorf("non-numeric: %+v", res)
	}
}

func TestValidateAnswer_RatingWithoutScale(t *testing.T) {
	q := &Question{Type: QuestionTypeRating}
	if res := ValidateAnswer(q, "42"); !res.OK {
		t.Errorf("rating without scale bounds: %+v", res)
	}
}

func TestValidateAnswer_Text(t *testing.T) {
	q := &Question{Type: QuestionTypeText}

	if res := ValidateAnswer(q, "  hello  "); !res.OK || res.Normalized != "hello" {
		t.Errorf("trimmed text: %+v", res)
	}
	if res := ValidateAnswer(q, "   "); res.OK || res.Kind != KindEmptyText {
		t.Errorf("whitespace only: %+v", res)
	}
	long := strings.Repeat("x", MaxTextAnswerLen+100)
	res := ValidateAnswer(q, long)
	if !res.OK || len(res.Normalized) != MaxTextAnswerLen {
		t.Errorf("long text cap: ok=%v len=%d", res.OK, len(res.Normalized))
	}
}

func TestValidateAnswer_UnsupportedType(t *testing.T) {
	q := &Question{Type: "essay"}
	if res := ValidateAnswer(q, "anything"); res.OK || res.Kind != KindUnsupportedType {
		t.Errorf("unsupported type: %+v", res)
	}
	if res := ValidateAnswer(nil, "anything"); res.OK || res.Kind != KindUnsupportedType {
		t.Errorf("nil question: %+v", res)
	}
}

func TestFallback(t *testing.T) {
	q := Fallback()
	if q.Type != QuestionTypeMultipleChoice || len(q.Options) != 2 {
		t.Fatalf("fallback question: %+v", q)
	}
	if res := ValidateAnswer(q, "yes"); !res.OK {
		t.Errorf("fallback yes answer: %+v", res)
	}
}
