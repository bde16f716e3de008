package questionnaire

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"mindfuleat/internal/catalog"
)

var (
	ErrNotFound            = errors.New("question not found")
	ErrInvalidSelection    = errors.New("invalid selection")
	ErrOutOfRange          = errors.New("value out of range")
	ErrUnknownQuestionType = errors.New("invalid question type")
	ErrMalformedAnswer     = errors.New("malformed answer")
)

// ValidationError ties a validation failure to the question that caused it.
type ValidationError struct {
	QuestionID int
	Err        error
	Detail     string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("question %d: %v: %s", e.QuestionID, e.Err, e.Detail)
	}
	return fmt.Sprintf("question %d: %v", e.QuestionID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Item is one submitted answer as it arrives on the wire.
type Item struct {
	QuestionID int             `json:"question_id"`
	Answer     json.RawMessage `json:"answer"`
}

// Value is a normalized answer. The concrete type is chosen by question type.
type Value interface {
	isValue()
}

type (
	Text        string
	Choice      string
	MultiChoice []string
	Number      int
)

type DropdownText struct {
	SelectedOption string `json:"selected_option"`
	Text           string `json:"text"`
}

type DropdownCheckbox struct {
	SelectedOption string   `json:"selected_option"`
	Checkboxes     []string `json:"checkboxes"`
}

func (Text) isValue()             {}
func (Choice) isValue()           {}
func (MultiChoice) isValue()      {}
func (Number) isValue()           {}
func (DropdownText) isValue()     {}
func (DropdownCheckbox) isValue() {}

// Answer is a validated answer together with the question text it belongs to.
type Answer struct {
	QuestionID int
	Question   string
	Value      Value
}

// Entry is the persisted form of an answer inside a user's answer set.
type Entry struct {
	Question string `json:"question"`
	Answer   Value  `json:"answer"`
}

type Lookup interface {
	Question(id int) (catalog.Question, bool)
}

// ValidateBatch validates every item against the catalog. The first failure
// is returned and no answers are produced, so callers never persist a partial batch.
func ValidateBatch(lookup Lookup, items []Item) ([]Answer, error) {
	out := make([]Answer, 0, len(items))
	for _, item := range items {
		q, ok := lookup.Question(item.QuestionID)
		if !ok {
			return nil, &ValidationError{QuestionID: item.QuestionID, Err: ErrNotFound}
		}
		v, err := Validate(q, item.Answer)
		if err != nil {
			return nil, err
		}
		out = append(out, Answer{QuestionID: q.ID, Question: q.Text, Value: v})
	}
	return out, nil
}

// ToSet merges answers into the per-user mapping keyed by question id.
func ToSet(answers []Answer) map[string]Entry {
	set := make(map[string]Entry, len(answers))
	for _, a := range answers {
		set[strconv.Itoa(a.QuestionID)] = Entry{Question: a.Question, Answer: a.Value}
	}
	return set
}

// Validate checks one raw answer against its question definition.
func Validate(q catalog.Question, raw json.RawMessage) (Value, error) {
	fail := func(err error, detail string) (Value, error) {
		return nil, &ValidationError{QuestionID: q.ID, Err: err, Detail: detail}
	}

	switch q.Type {
	case catalog.TypeText:
		s, err := decodeText(raw)
		if err != nil {
			return fail(ErrMalformedAnswer, "expected text")
		}
		return Text(s), nil

	case catalog.TypeRadio, catalog.TypeDropdown:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fail(ErrMalformedAnswer, "expected a single option")
		}
		if !slices.Contains(q.Options, s) {
			return fail(ErrInvalidSelection, s)
		}
		return Choice(s), nil

	case catalog.TypeMultiSelectDropdown:
		var selected []string
		if err := json.Unmarshal(raw, &selected); err != nil {
			return fail(ErrMalformedAnswer, "expected a list of options")
		}
		out := make(MultiChoice, 0, len(selected))
		seen := make(map[string]struct{}, len(selected))
		for _, s := range selected {
			if !slices.Contains(q.Options, s) {
				return fail(ErrInvalidSelection, s)
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
		return out, nil

	case catalog.TypeNumber, catalog.TypeSlider:
		n, err := decodeInt(raw)
		if err != nil {
			return fail(ErrMalformedAnswer, "expected an integer")
		}
		lo, hi, ok := q.Bounds()
		if !ok {
			return fail(ErrUnknownQuestionType, "question has no range")
		}
		if n < lo || n > hi {
			return fail(ErrOutOfRange, fmt.Sprintf("%d not in [%d, %d]", n, lo, hi))
		}
		return Number(n), nil

	case catalog.TypeDropdownText:
		var v DropdownText
		if err := json.Unmarshal(raw, &v); err != nil {
			return fail(ErrMalformedAnswer, "expected {selected_option, text}")
		}
		if !slices.Contains(q.Options, v.SelectedOption) {
			return fail(ErrInvalidSelection, v.SelectedOption)
		}
		return v, nil

	case catalog.TypeDropdownCheckbox:
		var v DropdownCheckbox
		if err := json.Unmarshal(raw, &v); err != nil {
			return fail(ErrMalformedAnswer, "expected {selected_option, checkboxes}")
		}
		if !slices.Contains(q.Options, v.SelectedOption) {
			return fail(ErrInvalidSelection, v.SelectedOption)
		}
		for _, c := range v.Checkboxes {
			if !slices.Contains(q.CheckboxOptions, c) {
				return fail(ErrInvalidSelection, "checkbox "+c)
			}
		}
		if v.Checkboxes == nil {
			v.Checkboxes = []string{}
		}
		return v, nil
	}
	return fail(ErrUnknownQuestionType, string(q.Type))
}

// decodeText accepts a JSON string, or a bare number or boolean as its literal text.
func decodeText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch v.(type) {
	case float64, bool:
		return strings.TrimSpace(string(raw)), nil
	}
	return "", ErrMalformedAnswer
}

// decodeInt accepts integers, integral floats and numeric strings.
func decodeInt(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, ErrMalformedAnswer
	}
	return int(f), nil
}
