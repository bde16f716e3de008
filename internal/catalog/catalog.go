package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

type QuestionType string

const (
	TypeText                QuestionType = "TEXT"
	TypeRadio               QuestionType = "RADIO"
	TypeDropdown            QuestionType = "DROPDOWN"
	TypeMultiSelectDropdown QuestionType = "MULTI_SELECT_DROPDOWN"
	TypeNumber              QuestionType = "NUMBER"
	TypeSlider              QuestionType = "SLIDER"
	TypeDropdownText        QuestionType = "DROPDOWN_TEXT"
	TypeDropdownCheckbox    QuestionType = "DROPDOWN_CHECKBOX"
)

type Question struct {
	ID              int          `yaml:"id" json:"id"`
	Text            string       `yaml:"question_text" json:"question_text"`
	Type            QuestionType `yaml:"question_type" json:"question_type"`
	Options         []string     `yaml:"options,omitempty" json:"options,omitempty"`
	Range           []int        `yaml:"range,omitempty" json:"range,omitempty"`
	CheckboxOptions []string     `yaml:"checkbox_options,omitempty" json:"checkbox_options,omitempty"`
}

// Bounds returns the inclusive numeric range of a NUMBER or SLIDER question.
func (q Question) Bounds() (lo, hi int, ok bool) {
	if len(q.Range) != 2 {
		return 0, 0, false
	}
	return q.Range[0], q.Range[1], true
}

type Behavior struct {
	ID    int    `yaml:"id" json:"id"`
	Title string `yaml:"behavior_title" json:"behavior_title"`
}

// Catalog is the read-only question and behavior table. It is built once at
// startup and safe for concurrent use.
type Catalog struct {
	questions    []Question
	questionByID map[int]Question
	behaviors    []Behavior
	behaviorByID map[int]Behavior
}

type fileFormat struct {
	Questions []Question `yaml:"questions"`
	Behaviors []Behavior `yaml:"behaviors"`
}

// New builds a catalog. Entries without an id get their 1-based position.
func New(questions []Question, behaviors []Behavior) (*Catalog, error) {
	c := &Catalog{
		questionByID: make(map[int]Question, len(questions)),
		behaviorByID: make(map[int]Behavior, len(behaviors)),
	}
	for i, q := range questions {
		if q.ID == 0 {
			q.ID = i + 1
		}
		if _, dup := c.questionByID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		if q.Type == TypeNumber || q.Type == TypeSlider {
			lo, hi, ok := q.Bounds()
			if !ok || lo > hi {
				return nil, fmt.Errorf("question %d: range must be [min, max]", q.ID)
			}
		}
		c.questionByID[q.ID] = q
		c.questions = append(c.questions, q)
	}
	for i, b := range behaviors {
		if b.ID == 0 {
			b.ID = i + 1
		}
		if _, dup := c.behaviorByID[b.ID]; dup {
			return nil, fmt.Errorf("duplicate behavior id %d", b.ID)
		}
		if b.Title == "" {
			return nil, fmt.Errorf("behavior %d: behavior_title is required", b.ID)
		}
		c.behaviorByID[b.ID] = b
		c.behaviors = append(c.behaviors, b)
	}
	sort.Slice(c.questions, func(i, j int) bool { return c.questions[i].ID < c.questions[j].ID })
	sort.Slice(c.behaviors, func(i, j int) bool { return c.behaviors[i].ID < c.behaviors[j].ID })
	return c, nil
}

// LoadFile reads a YAML (or JSON) document with `questions` and `behaviors` lists.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(f.Questions, f.Behaviors)
}

// LoadEnv reads the legacy QUESTION_<n> and BEHAVIOR_<n> variables, each holding
// one JSON object, starting at 1 and stopping at the first gap.
func LoadEnv(lookup func(string) (string, bool)) (*Catalog, error) {
	questions, err := loadIndexed[Question](lookup, "QUESTION_")
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].ID = i + 1
	}
	behaviors, err := loadIndexed[Behavior](lookup, "BEHAVIOR_")
	if err != nil {
		return nil, err
	}
	for i := range behaviors {
		behaviors[i].ID = i + 1
	}
	return New(questions, behaviors)
}

func loadIndexed[T any](lookup func(string) (string, bool), prefix string) ([]T, error) {
	var out []T
	for i := 1; ; i++ {
		key := prefix + strconv.Itoa(i)
		raw, ok := lookup(key)
		if !ok || raw == "" {
			return out, nil
		}
		var item T
		if err := yaml.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		out = append(out, item)
	}
}

// Load prefers the catalog file and falls back to environment variables.
func Load(path string) (*Catalog, error) {
	if path != "" {
		return LoadFile(path)
	}
	c, err := LoadEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if len(c.questions) == 0 && len(c.behaviors) == 0 {
		return nil, errors.New("catalog is empty: set CATALOG_PATH or QUESTION_<n>/BEHAVIOR_<n>")
	}
	return c, nil
}

func (c *Catalog) Questions() []Question {
	return append([]Question(nil), c.questions...)
}

func (c *Catalog) Question(id int) (Question, bool) {
	q, ok := c.questionByID[id]
	return q, ok
}

func (c *Catalog) Behaviors() []Behavior {
	return append([]Behavior(nil), c.behaviors...)
}

func (c *Catalog) Behavior(id int) (Behavior, bool) {
	b, ok := c.behaviorByID[id]
	return b, ok
}
