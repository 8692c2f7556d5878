package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

// AnswerKind tells which value an Answer holds.
type AnswerKind int

const (
	AnswerKindNone AnswerKind = iota
	AnswerKindText
	AnswerKindNumber
	AnswerKindList
)

var ErrInvalidAnswer = errors.New("answer must be a string, a number or a list of strings")

// Answer is a participant's answer to one question: a string, a number or
// an ordered list of strings.
type Answer struct {
	kind   AnswerKind
	text   string
	number float64
	list   []string
}

// ParticipantResponses maps question ids to answers.
type ParticipantResponses map[string]Answer

func TextAnswer(s string) Answer {
	return Answer{kind: AnswerKindText, text: s}
}

func NumberAnswer(n float64) Answer {
	return Answer{kind: AnswerKindNumber, number: n}
}

func ListAnswer(items ...string) Answer {
	return Answer{kind: AnswerKindList, list: append([]string{}, items...)}
}

func (a Answer) Kind() AnswerKind { return a.kind }

func (a Answer) Text() (string, bool) { return a.text, a.kind == AnswerKindText }

func (a Answer) Number() (float64, bool) { return a.number, a.kind == AnswerKindNumber }

func (a Answer) List() ([]string, bool) { return a.list, a.kind == AnswerKindList }

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerKindText:
		return json.Marshal(a.text)
	case AnswerKindNumber:
		return json.Marshal(a.number)
	case AnswerKindList:
		return json.Marshal(a.list)
	default:
		return []byte("null"), nil
	}
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}

		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*a = TextAnswer(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return ErrInvalidAnswer
		}

		*a = ListAnswer(items...)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidAnswer
		}

		*a = NumberAnswer(n)
	}

	return nil
}
