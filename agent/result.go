package agent

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/protoreview/pkg/llms"
	"github.com/effective-security/protoreview/pkg/llmutils"
	"github.com/effective-security/protoreview/standards"
	"github.com/go-playground/validator/v10"
)

// ErrMalformedResponse is returned when the model's final answer cannot be
// assembled into a structured review. The whole response fails; no partial
// issue list is salvaged.
var ErrMalformedResponse = errors.New("malformed model response")

// Severity of a review issue.
type Severity string

const (
	// SeverityError marks a definite violation.
	SeverityError Severity = "error"
	// SeverityWarning marks a likely violation.
	SeverityWarning Severity = "warning"
	// SeveritySuggestion marks a possible improvement.
	SeveritySuggestion Severity = "suggestion"
)

// Issue is a single finding against a standard.
type Issue struct {
	Severity       Severity `json:"severity" yaml:"severity" validate:"required,oneof=error warning suggestion"`
	Location       string   `json:"location" yaml:"location" validate:"required"`
	Issue          string   `json:"issue" yaml:"issue" validate:"required"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
	// Reference names the standard defining the violated rule, such as
	// AIP-142, ORG-001, or BEST-PRACTICE. The system prompt asks for one on
	// every issue, but an issue without it is still accepted.
	Reference string `json:"reference" yaml:"reference"`
}

// Review is the structured outcome of a review run.
type Review struct {
	Issues  []Issue `json:"issues" yaml:"issues" validate:"dive"`
	Summary string  `json:"summary" yaml:"summary"`
}

// ReviewResult carries the review outcome with adapter metadata.
type ReviewResult struct {
	// Content is the model's final text. For structured runs it is the raw
	// text the Review was parsed from.
	Content string `json:"content" yaml:"content"`
	// Review is set on structured runs.
	Review *Review `json:"review,omitempty" yaml:"review,omitempty"`

	Provider       llms.ProviderType `json:"provider" yaml:"provider"`
	Model          string            `json:"model" yaml:"model"`
	IterationsUsed int               `json:"iterations_used" yaml:"iterations_used"`
	// Incomplete reports that the iteration budget ran out before the model
	// produced a final answer. Content then holds the partial text.
	Incomplete bool `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
}

var validate = validator.New()

// ParseReview extracts the structured review from the model's final text.
// The text may wrap the JSON in backticks or prose. Any schema violation
// fails the whole response with ErrMalformedResponse.
func ParseReview(content string) (*Review, error) {
	if content == "" {
		return nil, errors.WithMessage(ErrMalformedResponse, "empty response")
	}

	bs := llmutils.CleanJSON(llmutils.BytesTrimBackticks([]byte(content)))

	var review Review
	if err := json.Unmarshal(bs, &review); err != nil {
		return nil, errors.WithSecondaryError(
			errors.WithMessage(ErrMalformedResponse, "failed to parse review JSON"), err)
	}
	if err := validate.Struct(&review); err != nil {
		return nil, errors.WithSecondaryError(
			errors.WithMessage(ErrMalformedResponse, "review failed validation"), err)
	}
	for i := range review.Issues {
		review.Issues[i].Reference = standards.NormalizeUniversalID(review.Issues[i].Reference)
	}
	return &review, nil
}

// CountBySeverity returns the number of issues per severity.
func (r *Review) CountBySeverity() map[Severity]int {
	res := make(map[Severity]int)
	for _, issue := range r.Issues {
		res[issue.Severity]++
	}
	return res
}
