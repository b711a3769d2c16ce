package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
)

// Completer is the text-completion collaborator. Its output is untrusted text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
	return f(ctx, prompt, maxTokens, temperature)
}

// StructureContext is optional caller-supplied context for one document.
type StructureContext struct {
	Contributor      string
	OriginalFilename string
	SourceType       string
}

// CompletionError wraps a transport or provider failure.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string { return "completion failed: " + e.Err.Error() }

func (e *CompletionError) Unwrap() []error { return []error{common.ErrCompletionFailed, e.Err} }

// StructuringParseError means no JSON object could be recovered from the response.
type StructuringParseError struct {
	Raw string
	Err error
}

func (e *StructuringParseError) Error() string {
	return fmt.Sprintf("could not parse structured response (%d bytes): %v", len(e.Raw), e.Err)
}

func (e *StructuringParseError) Unwrap() []error {
	return []error{common.ErrStructuringParse, e.Err}
}

// InvalidStructuredOutputError means the response parsed but lacks required content.
type InvalidStructuredOutputError struct {
	Missing []string
	Reason  string
}

func (e *InvalidStructuredOutputError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return "invalid structured output: " + e.Reason
}

func (e *InvalidStructuredOutputError) Unwrap() error { return common.ErrInvalidStructuredOutput }
