package transcription

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/interview-proctor/internal/ai"
)

const (
	minConfidence = 0.5
	maxConfidence = 1.0

	heuristicBase        = 0.90
	shortWordPenalty     = 0.10
	fillerPenalty        = 0.05
	shortAnswerPenalty   = 0.10
	shortWordLength      = 3
	shortAnswerWordCount = 10
)

var fillers = []string{"um", "uh", "like", "you know"}

// Confidence derives a transcript confidence. Segment log-probabilities win
// when any segment carries one; otherwise a text heuristic is used.
func Confidence(text string, segments []ai.Segment) float64 {
	if c, ok := SegmentConfidence(segments); ok {
		return c
	}
	return HeuristicConfidence(text)
}

// SegmentConfidence is clamp(exp(mean(avgLogProb)), 0.5, 1.0) over the segments
// that report a log-probability.
func SegmentConfidence(segments []ai.Segment) (float64, bool) {
	var sum float64
	var n int
	for _, seg := range segments {
		if seg.AvgLogProb == nil {
			continue
		}
		sum += *seg.AvgLogProb
		n++
	}
	if n == 0 {
		return 0, false
	}
	return clamp(math.Exp(sum / float64(n))), true
}

// HeuristicConfidence applies every penalty to the base score and clamps once at the end.
func HeuristicConfidence(text string) float64 {
	words := splitWords(strings.ToLower(text))

	confidence := heuristicBase

	var letters int
	for _, w := range words {
		letters += utf8.RuneCountInString(w)
	}
	if len(words) == 0 || float64(letters)/float64(len(words)) < shortWordLength {
		confidence -= shortWordPenalty
	}

	if hasFiller(words) {
		confidence -= fillerPenalty
	}

	if len(words) < shortAnswerWordCount {
		confidence -= shortAnswerPenalty
	}

	return clamp(confidence)
}

// splitWords splits on whitespace and trims surrounding punctuation, so "ok." is two letters long.
func splitWords(text string) []string {
	fields := strings.Fields(text)
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// hasFiller matches fillers as whole words so "umbrella" or "likely" do not count.
func hasFiller(words []string) bool {
	joined := " " + strings.Join(words, " ") + " "

	for _, filler := range fillers {
		if strings.Contains(joined, " "+filler+" ") {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < minConfidence {
		return minConfidence
	}
	if v > maxConfidence {
		return maxConfidence
	}
	return v
}
