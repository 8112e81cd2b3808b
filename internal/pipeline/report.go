package pipeline

import (
	"time"

	"github.com/spigell/interview-proctor/internal/ai"
)

// Report is the serializable outcome of a turn, errors included.
type Report struct {
	Result        *TurnResult `json:"result,omitempty" yaml:"result,omitempty"`
	Error         string      `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind     ai.Kind     `json:"errorKind,omitempty" yaml:"errorKind,omitempty"`
	Retryable     bool        `json:"retryable,omitempty" yaml:"retryable,omitempty"`
	AnalysisError string      `json:"analysisError,omitempty" yaml:"analysisError,omitempty"`
	FollowUpError string      `json:"followUpError,omitempty" yaml:"followUpError,omitempty"`
	ProcessedAt   time.Time   `json:"processedAt" yaml:"processedAt"`
}

func NewReport(result *TurnResult, err error) Report {
	report := Report{Result: result, ProcessedAt: time.Now().UTC()}
	if err != nil {
		report.Error = err.Error()
		report.ErrorKind = ai.KindOf(err)
		report.Retryable = ai.Retryable(err)
	}
	if result != nil {
		if result.AnalysisErr != nil {
			report.AnalysisError = result.AnalysisErr.Error()
		}
		if result.FollowUpErr != nil {
			report.FollowUpError = result.FollowUpErr.Error()
		}
	}
	return report
}
