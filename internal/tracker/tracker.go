// Package tracker records unit executions for post-run inspection.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/llm-steps/internal/pipeline"
)

// Record is one tracked unit execution.
type Record struct {
	ID       string
	RunID    string
	Pipeline string
	Unit     string
	Index    int
	Success  bool
	Message  string
	Error    string
	Duration time.Duration
	At       time.Time
}

// Sink receives every record as it is tracked, e.g. to forward it to a log.
type Sink func(record Record) error

// Tracker keeps an append-only list of records grouped under a run identifier.
type Tracker struct {
	mu      sync.Mutex
	runID   string
	records []Record
	sink    Sink
	now     func() time.Time
}

// New starts a tracker with a fresh run identifier. sink may be nil.
func New(sink Sink) *Tracker {
	return &Tracker{runID: uuid.NewString(), sink: sink, now: time.Now}
}

// RunID identifies the current run.
func (t *Tracker) RunID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runID
}

// StartRun begins a new run identifier; earlier records are kept.
func (t *Tracker) StartRun() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runID = uuid.NewString()
	return t.runID
}

// Track implements pipeline.Tracker. The record is kept even when the sink fails.
func (t *Tracker) Track(ctx context.Context, step pipeline.StepRecord) error {
	record := Record{
		ID:       uuid.NewString(),
		Pipeline: step.Pipeline,
		Unit:     step.Unit,
		Index:    step.Index,
		Success:  step.Success,
		Message:  step.Message,
		Duration: step.Duration,
	}
	if step.Err != nil {
		record.Error = step.Err.Error()
	}

	t.mu.Lock()
	record.RunID = t.runID
	record.At = t.now()
	t.records = append(t.records, record)
	sink := t.sink
	t.mu.Unlock()

	if sink == nil {
		return nil
	}
	if sinkErr := sink(record); sinkErr != nil {
		return fmt.Errorf("tracker sink: %w", sinkErr)
	}
	return nil
}

// Records returns a copy of everything tracked so far.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Summary renders one line per record.
func (t *Tracker) Summary() string {
	var sb strings.Builder
	for _, record := range t.Records() {
		status := "ok"
		if !record.Success {
			status = "failed"
		}
		sb.WriteString(fmt.Sprintf("%s/%s\t%s\t%s\t%s\n", record.Pipeline, record.Unit, status, record.Duration.Round(time.Millisecond), record.Message))
	}
	return strings.TrimRight(sb.String(), "\n")
}
