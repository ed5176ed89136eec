package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const emptyPipelineMessage = "pipeline has no units"

// StepRecord describes one unit execution for an execution tracker.
type StepRecord struct {
	Pipeline string
	Unit     string
	Index    int
	Success  bool
	Message  string
	Duration time.Duration
	Err      error
}

// Tracker receives step records. Its failures are logged and never abort a run.
type Tracker interface {
	Track(ctx context.Context, record StepRecord) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; nil keeps the no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracker sets the execution tracker.
func WithTracker(tracker Tracker) Option {
	return func(p *Pipeline) { p.tracker = tracker }
}

// Pipeline executes a fixed chain of units in order over one session.
type Pipeline struct {
	name    string
	units   []Unit
	session *Session
	logger  *zap.Logger
	tracker Tracker
}

// New builds a pipeline. The unit list is copied; later changes to the slice have no effect.
func New(name string, session *Session, units []Unit, options ...Option) *Pipeline {
	owned := make([]Unit, len(units))
	copy(owned, units)
	p := &Pipeline{
		name:    name,
		units:   owned,
		session: session,
		logger:  zap.NewNop(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *Pipeline) Name() string { return p.name }

func (p *Pipeline) Session() *Session { return p.session }

// UnitNames lists the units in execution order.
func (p *Pipeline) UnitNames() []string {
	names := make([]string, len(p.units))
	for index, unit := range p.units {
		names[index] = unit.Name()
	}
	return names
}

// Run feeds input to the first unit and each unit's value to the next. It stops at the first
// output with Success false and returns that output unchanged. A unit error is returned as is
// and no later unit runs.
func (p *Pipeline) Run(ctx context.Context, input any) (Output, error) {
	p.logger.Info("executing pipeline", zap.String("pipeline", p.name), zap.Int("units", len(p.units)))
	if len(p.units) == 0 {
		return Succeed(input, emptyPipelineMessage), nil
	}

	current := input
	var output Output
	for index, unit := range p.units {
		started := time.Now()
		unitOutput, unitErr := unit.Execute(ctx, current, p.session)
		elapsed := time.Since(started)

		record := StepRecord{
			Pipeline: p.name,
			Unit:     unit.Name(),
			Index:    index,
			Success:  unitErr == nil && unitOutput.Success,
			Message:  unitOutput.Message,
			Duration: elapsed,
			Err:      unitErr,
		}
		p.track(ctx, record)

		if unitErr != nil {
			p.logger.Error("unit aborted pipeline",
				zap.String("pipeline", p.name),
				zap.String("unit", unit.Name()),
				zap.Duration("duration", elapsed),
				zap.Error(unitErr))
			return Output{}, unitErr
		}
		p.logger.Debug("unit completed",
			zap.String("pipeline", p.name),
			zap.String("unit", unit.Name()),
			zap.Bool("success", unitOutput.Success),
			zap.Duration("duration", elapsed))
		if !unitOutput.Success {
			return unitOutput, nil
		}
		output = unitOutput
		current = unitOutput.Value
	}
	return output, nil
}

func (p *Pipeline) track(ctx context.Context, record StepRecord) {
	if p.tracker == nil {
		return
	}
	if trackErr := p.tracker.Track(ctx, record); trackErr != nil {
		p.logger.Warn("execution tracker failed",
			zap.String("pipeline", p.name),
			zap.String("unit", record.Unit),
			zap.Error(trackErr))
	}
}
