package pipeline

import "context"

// Observer receives a unit's output once the unit returns one.
type Observer func(output Output)

// WithObserver wraps unit so observer fires exactly once per execution that returns an output,
// whether it succeeded or not. A nil observer returns unit unchanged.
func WithObserver(unit Unit, observer Observer) Unit {
	if observer == nil {
		return unit
	}
	return observedUnit{inner: unit, observer: observer}
}

type observedUnit struct {
	inner    Unit
	observer Observer
}

func (u observedUnit) Name() string { return u.inner.Name() }

func (u observedUnit) Execute(ctx context.Context, input any, session *Session) (Output, error) {
	output, err := u.inner.Execute(ctx, input, session)
	if err != nil {
		return output, err
	}
	u.observer(output)
	return output, nil
}
