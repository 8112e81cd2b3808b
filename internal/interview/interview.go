// Package interview holds the vocabulary shared by the scoring components.
package interview

import (
	"strings"
	"time"
)

type QuestionType string

const (
	Technical  QuestionType = "technical"
	Behavioral QuestionType = "behavioral"
	Mixed      QuestionType = "mixed"
)

// ParseQuestionType maps free-form labels onto a known type, defaulting to behavioral.
func ParseQuestionType(s string) QuestionType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "technical", "tech", "coding", "system-design", "system_design":
		return Technical
	case "mixed":
		return Mixed
	default:
		return Behavioral
	}
}

type Question struct {
	Text string       `json:"text" yaml:"text"`
	Type QuestionType `json:"type" yaml:"type"`
}

// Scores are per-answer ratings in [0, 100].
type Scores struct {
	Clarity   float64 `json:"clarity" yaml:"clarity"`
	Relevance float64 `json:"relevance" yaml:"relevance"`
	Depth     float64 `json:"depth" yaml:"depth"`
	Structure float64 `json:"structure" yaml:"structure"`
}

// Average is the unweighted mean of the four scores.
func (s Scores) Average() float64 {
	return (s.Clarity + s.Relevance + s.Depth + s.Structure) / 4
}

// Turn is one finished question/answer exchange.
type Turn struct {
	Question Question `json:"question" yaml:"question"`
	Response string   `json:"response" yaml:"response"`
	Scores   *Scores  `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// Record is everything known about a completed interview.
type Record struct {
	ID       string        `json:"id" yaml:"id"`
	Type     QuestionType  `json:"type" yaml:"type"`
	Duration time.Duration `json:"duration" yaml:"duration"`
	Turns    []Turn        `json:"turns" yaml:"turns"`
}
