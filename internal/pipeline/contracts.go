// Package pipeline runs ordered chains of logic units over a shared session.
package pipeline

import "context"

const (
	defaultSuccessMessage = "unit completed"
	defaultFailureMessage = "unit failed"
)

// Output is the result envelope every unit returns. It is treated as immutable once returned.
type Output struct {
	Value   any
	Success bool
	Message string
}

// NewOutput builds an Output and fills an empty message so the envelope always carries one.
func NewOutput(value any, success bool, message string) Output {
	if message == "" {
		message = defaultFailureMessage
		if success {
			message = defaultSuccessMessage
		}
	}
	return Output{Value: value, Success: success, Message: message}
}

// Succeed is shorthand for NewOutput(value, true, message).
func Succeed(value any, message string) Output { return NewOutput(value, true, message) }

// Fail is shorthand for a soft failure carrying the unit's partial value.
func Fail(value any, message string) Output { return NewOutput(value, false, message) }

// Unit is one step of a pipeline.
//
// Execute receives the previous unit's value (or the pipeline input for the first unit) and the
// shared session. A unit that cannot do its job returns an Output with Success false. A returned
// error aborts the whole run and reaches the caller of Run unchanged.
type Unit interface {
	Name() string
	Execute(ctx context.Context, input any, session *Session) (Output, error)
}

// UnitFunc adapts a function to the Unit interface.
type UnitFunc struct {
	UnitName string
	Fn       func(ctx context.Context, input any, session *Session) (Output, error)
}

func (u UnitFunc) Name() string { return u.UnitName }

func (u UnitFunc) Execute(ctx context.Context, input any, session *Session) (Output, error) {
	return u.Fn(ctx, input, session)
}

// Prompt is the request handed to an LLM.
type Prompt struct {
	System string
	User   string
}

// LLM is the model collaborator units call through the session.
type LLM interface {
	// Type is the capability class checked by input validation, e.g. the provider name.
	Type() string
	Call(ctx context.Context, prompt Prompt) (string, error)
}
