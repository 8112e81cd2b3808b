package analysis

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/interview-proctor/internal/interview"
)

var (
	technicalTerms  = []string{"api", "database", "algorithm", "optimization", "scalability", "performance", "testing", "deployment"}
	behavioralTerms = []string{"team", "leadership", "communication", "problem", "solution", "result", "impact", "collaboration"}

	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	digits        = regexp.MustCompile(`\d`)
)

const (
	longWordLength = 6
	// relevanceTarget is the number of matched terms that earns full relevance.
	relevanceTarget = 3
)

// Metrics are computed locally from the transcript, independent of any provider.
type Metrics struct {
	WordCount           int     `json:"wordCount" yaml:"wordCount"`
	SentenceCount       int     `json:"sentenceCount" yaml:"sentenceCount"`
	AvgWordsPerSentence float64 `json:"avgWordsPerSentence" yaml:"avgWordsPerSentence"`
	HasNumbers          bool    `json:"hasNumbers" yaml:"hasNumbers"`
	HasTechnicalTerms   bool    `json:"hasTechnicalTerms" yaml:"hasTechnicalTerms"`
	HasBehavioralTerms  bool    `json:"hasBehavioralTerms" yaml:"hasBehavioralTerms"`
	Complexity          float64 `json:"complexity" yaml:"complexity"`
	Relevance           float64 `json:"relevance" yaml:"relevance"`
}

func ComputeMetrics(text string, questionType interview.QuestionType) Metrics {
	words := tokenize(text)
	lower := strings.ToLower(text)

	m := Metrics{
		WordCount:          len(words),
		SentenceCount:      countSentences(text),
		HasNumbers:         digits.MatchString(text),
		HasTechnicalTerms:  len(matchTerms(lower, technicalTerms)) > 0,
		HasBehavioralTerms: len(matchTerms(lower, behavioralTerms)) > 0,
	}

	if m.SentenceCount > 0 {
		m.AvgWordsPerSentence = float64(m.WordCount) / float64(m.SentenceCount)
	}

	if m.WordCount > 0 {
		var long int
		for _, w := range words {
			if utf8.RuneCountInString(w) > longWordLength {
				long++
			}
		}
		m.Complexity = 100 * float64(long) / float64(m.WordCount)
	}

	matched := len(matchTerms(lower, termsFor(questionType)))
	m.Relevance = math.Min(100, 100*float64(matched)/relevanceTarget)

	return m
}

// Keywords returns the domain terms of both lists present in text, sorted.
func Keywords(text string) []string {
	lower := strings.ToLower(text)
	found := append(matchTerms(lower, technicalTerms), matchTerms(lower, behavioralTerms)...)
	slices.Sort(found)
	return slices.Compact(found)
}

func termsFor(questionType interview.QuestionType) []string {
	if questionType == interview.Technical {
		return technicalTerms
	}
	return behavioralTerms
}

// matchTerms reports the terms occurring in lower, a lower-cased text.
// Terms match as substrings so plurals and derived forms count.
func matchTerms(lower string, terms []string) []string {
	var found []string
	for _, term := range terms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// tokenize splits on whitespace and strips surrounding punctuation.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	words := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

func countSentences(text string) int {
	var n int
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}
