package models

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

var (
	ErrLikertScaleRequired = errors.New("likert question requires a scale with min below max")
	ErrOptionsRequired     = errors.New("multiple-choice question requires at least one option")
	ErrSubscalesNotAllowed = errors.New("only survey blocks carry subscales")
	ErrNotAnswerable       = errors.New("question does not accept answers")
	ErrAnswerType          = errors.New("answer does not match question type")
	ErrAnswerOutOfScale    = errors.New("answer is outside the likert scale")
	ErrUnknownOption       = errors.New("answer is not one of the question options")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints, id uniqueness within each parent and
// the variant payloads of blocks and questions.
func (w *Workshop) Validate() error {
	if err := validate.Struct(w); err != nil {
		return err
	}

	for _, b := range w.Blocks {
		if b.Type != BlockTypeSurvey && len(b.Subscales) > 0 {
			return fmt.Errorf("block %s: %w", b.ID, ErrSubscalesNotAllowed)
		}

		for _, s := range b.Subscales {
			for _, q := range s.Questions {
				if err := q.validatePayload(); err != nil {
					return fmt.Errorf("block %s question %s: %w", b.ID, q.ID, err)
				}
			}
		}
	}

	return nil
}

// Validate checks the session's field constraints.
func (s *Session) Validate() error {
	return validate.Struct(s)
}

func (q Question) validatePayload() error {
	switch q.Type {
	case QuestionTypeLikert:
		if q.Scale == nil || q.Scale.Min >= q.Scale.Max {
			return ErrLikertScaleRequired
		}
	case QuestionTypeMultipleChoice:
		if len(q.Options) == 0 {
			return ErrOptionsRequired
		}
	case QuestionTypeOpenText, QuestionTypeMarkdown:
	}

	return nil
}

// ValidateAnswer checks that the answer fits the question type.
func (q Question) ValidateAnswer(a Answer) error {
	switch q.Type {
	case QuestionTypeMarkdown:
		return ErrNotAnswerable
	case QuestionTypeOpenText:
		if _, ok := a.Text(); !ok {
			return ErrAnswerType
		}
	case QuestionTypeLikert:
		n, ok := a.Number()
		if !ok {
			return ErrAnswerType
		}

		if q.Scale != nil && (n < float64(q.Scale.Min) || n > float64(q.Scale.Max)) {
			return ErrAnswerOutOfScale
		}
	case QuestionTypeMultipleChoice:
		var picked []string
		if s, ok := a.Text(); ok {
			picked = []string{s}
		} else if l, ok := a.List(); ok {
			picked = l
		} else {
			return ErrAnswerType
		}

		for _, p := range picked {
			if !slices.Contains(q.Options, p) {
				return ErrUnknownOption
			}
		}
	}

	return nil
}
