package models

import (
	"encoding/json"
	"fmt"
)

// BlockType discriminates the block variants.
type BlockType string

const (
	BlockTypeDiscussion BlockType = "discussion"
	BlockTypeSurvey     BlockType = "survey"
	BlockTypeBreak      BlockType = "break"
)

// GroupingMethod is how participants are split for a discussion.
type GroupingMethod string

const (
	GroupingMethodRandom     GroupingMethod = "random"
	GroupingMethodTableBased GroupingMethod = "table-based"
	GroupingMethodManual     GroupingMethod = "manual"
)

// QuestionType discriminates the question variants.
type QuestionType string

const (
	QuestionTypeLikert         QuestionType = "likert"
	QuestionTypeMultipleChoice QuestionType = "multiple-choice"
	QuestionTypeOpenText       QuestionType = "open-text"
	QuestionTypeMarkdown       QuestionType = "markdown" // Display only
)

// Block is one timed unit of workshop content.
//
// The variant specific fields are only meaningful for their Type: Prompt,
// GroupingMethod and HasReflection for discussions, Subscales for surveys.
// Breaks carry the common fields only.
type Block struct {
	ID       string    `json:"id"       validate:"required"`
	Type     BlockType `json:"type"     validate:"required,oneof=discussion survey break"`
	Title    string    `json:"title"`
	Duration int       `json:"duration" validate:"min=0"` // Minutes

	Prompt         string         `json:"prompt,omitempty"`
	GroupingMethod GroupingMethod `json:"grouping_method,omitempty" validate:"omitempty,oneof=random table-based manual"`
	HasReflection  bool           `json:"has_reflection,omitempty"`

	Subscales []Subscale `json:"subscales,omitempty" validate:"unique=ID,dive"`
}

// Subscale groups survey questions.
type Subscale struct {
	ID        string     `json:"id"        validate:"required"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions" validate:"unique=ID,dive"`
}

// Question is a survey item.
type Question struct {
	ID      string       `json:"id"                validate:"required"`
	Type    QuestionType `json:"type"              validate:"required,oneof=likert multiple-choice open-text markdown"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Scale   *LikertScale `json:"scale,omitempty"`
}

// LikertScale is the numeric range of a likert question.
type LikertScale struct {
	Min    int         `json:"min"`
	Max    int         `json:"max"`
	Labels ScaleLabels `json:"labels"`
}

type ScaleLabels struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

type discussionBlockJSON struct {
	ID             string         `json:"id"`
	Type           BlockType      `json:"type"`
	Title          string         `json:"title"`
	Duration       int            `json:"duration"`
	Prompt         string         `json:"prompt"`
	GroupingMethod GroupingMethod `json:"grouping_method"`
	HasReflection  bool           `json:"has_reflection"`
}

type surveyBlockJSON struct {
	ID        string     `json:"id"`
	Type      BlockType  `json:"type"`
	Title     string     `json:"title"`
	Duration  int        `json:"duration"`
	Subscales []Subscale `json:"subscales"`
}

type breakBlockJSON struct {
	ID       string    `json:"id"`
	Type     BlockType `json:"type"`
	Title    string    `json:"title"`
	Duration int       `json:"duration"`
}

// MarshalJSON writes only the fields of the block's variant.
func (b Block) MarshalJSON() ([]byte, error) {
	switch b.Type {
	case BlockTypeDiscussion:
		return json.Marshal(discussionBlockJSON{
			ID:             b.ID,
			Type:           b.Type,
			Title:          b.Title,
			Duration:       b.Duration,
			Prompt:         b.Prompt,
			GroupingMethod: b.GroupingMethod,
			HasReflection:  b.HasReflection,
		})
	case BlockTypeSurvey:
		subscales := b.Subscales
		if subscales == nil {
			subscales = []Subscale{}
		}

		return json.Marshal(surveyBlockJSON{
			ID:        b.ID,
			Type:      b.Type,
			Title:     b.Title,
			Duration:  b.Duration,
			Subscales: subscales,
		})
	case BlockTypeBreak:
		return json.Marshal(breakBlockJSON{
			ID:       b.ID,
			Type:     b.Type,
			Title:    b.Title,
			Duration: b.Duration,
		})
	default:
		return nil, fmt.Errorf("unknown block type %q", b.Type)
	}
}

// Answerable reports whether participants can answer the question.
func (q Question) Answerable() bool {
	return q.Type != QuestionTypeMarkdown
}

// Question returns the survey question with the given id.
func (b *Block) Question(questionID string) (*Question, bool) {
	for i := range b.Subscales {
		for j := range b.Subscales[i].Questions {
			if b.Subscales[i].Questions[j].ID == questionID {
				return &b.Subscales[i].Questions[j], true
			}
		}
	}

	return nil, false
}

// CloneBlocks deep copies a block sequence.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return []Block{}
	}

	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		if b.Subscales != nil {
			out[i].Subscales = make([]Subscale, len(b.Subscales))
			for j, s := range b.Subscales {
				out[i].Subscales[j] = s
				out[i].Subscales[j].Questions = cloneQuestions(s.Questions)
			}
		}
	}

	return out
}

func cloneQuestions(questions []Question) []Question {
	if questions == nil {
		return nil
	}

	out := make([]Question, len(questions))
	for i, q := range questions {
		out[i] = q
		if q.Options != nil {
			out[i].Options = append([]string(nil), q.Options...)
		}

		if q.Scale != nil {
			scale := *q.Scale
			out[i].Scale = &scale
		}
	}

	return out
}
