package correction

import (
	"context"
	"errors"
	"fmt"

	"github.com/temirov/llm-steps/internal/execution"
	"github.com/temirov/llm-steps/internal/pipeline"
)

// ErrCorrectionExhausted is returned when code still fails after every allowed correction.
var ErrCorrectionExhausted = errors.New("code correction attempts exhausted")

// Executor runs generated code and returns its output. A returned error is the failure text
// handed to the correction pipeline, unless it matches execution.ErrUnavailable: then the
// environment is at fault and no correction is attempted.
type Executor interface {
	Execute(ctx context.Context, code string) (string, error)
}

// Policy bounds how often the caller reruns the correction pipeline.
type Policy struct {
	// MaxAttempts is the number of correction runs; zero disables correction.
	MaxAttempts int
}

// Attempt describes one correction run.
type Attempt struct {
	Input  Input
	Output pipeline.Output
}

// Outcome is the result of executing code with corrections.
type Outcome struct {
	Code     string
	Result   string
	Attempts []Attempt
}

// Retry executes code and, while it fails, asks the correction pipeline for a new version.
// A soft failure of the correction pipeline uses up an attempt and the next one starts from
// the same code and error. Errors raised by the pipeline are returned unchanged.
func Retry(ctx context.Context, corrector *Pipeline, policy Policy, query string, code string, executor Executor) (Outcome, error) {
	outcome := Outcome{Code: code}
	result, executeErr := executor.Execute(ctx, code)
	for attempt := 0; executeErr != nil; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcome, ctxErr
		}
		if errors.Is(executeErr, execution.ErrUnavailable) {
			return outcome, executeErr
		}
		if attempt >= policy.MaxAttempts {
			return outcome, fmt.Errorf("%w after %d attempt(s): %v", ErrCorrectionExhausted, attempt, executeErr)
		}
		input := Input{Query: query, Code: outcome.Code, Error: executeErr.Error()}
		output, runErr := corrector.Run(ctx, input)
		if runErr != nil {
			return outcome, runErr
		}
		outcome.Attempts = append(outcome.Attempts, Attempt{Input: input, Output: output})
		if !output.Success {
			continue
		}
		corrected, ok := output.Value.(string)
		if !ok {
			return outcome, fmt.Errorf("correction produced %T instead of code", output.Value)
		}
		outcome.Code = corrected
		result, executeErr = executor.Execute(ctx, corrected)
	}
	outcome.Result = result
	return outcome, nil
}
