package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/sarchlab/pathtrace/datarecording"
)

// Table names used by the SQLiteSink.
const (
	TraceTable      = "trace_records"
	StepTable       = "trace_steps"
	BottleneckTable = "trace_bottlenecks"
)

// TraceRow is a row of the trace table.
type TraceRow struct {
	ID              string
	Name            string
	Timestamp       string
	TotalDurationUS int64
	Recommendations string
	Metadata        string
}

// StepRow is a row of the step table.
type StepRow struct {
	TraceID       string
	Position      int
	Name          string
	DurationUS    int64
	Success       bool
	Error         string
	MemoryDelta   int64
	IsParallel    bool
	ParallelCount int
	SubErrors     string
}

// BottleneckRow is a row of the bottleneck table.
type BottleneckRow struct {
	TraceID    string
	StepName   string
	DurationUS int64
	Percentage float64
	Severity   string
	HasError   bool
}

// SQLiteSink stores records in SQLite tables through a DataRecorder.
type SQLiteSink struct {
	mu       sync.Mutex
	recorder datarecording.DataRecorder
	location string
	ready    bool
}

// NewSQLiteSink creates a SQLiteSink. The location is only used to describe
// where records go.
func NewSQLiteSink(
	recorder datarecording.DataRecorder,
	location string,
) *SQLiteSink {
	return &SQLiteSink{
		recorder: recorder,
		location: location,
	}
}

func (s *SQLiteSink) createTables() error {
	if s.ready {
		return nil
	}

	for name, sample := range map[string]any{
		TraceTable:      TraceRow{},
		StepTable:       StepRow{},
		BottleneckTable: BottleneckRow{},
	} {
		if err := s.recorder.CreateTable(name, sample); err != nil {
			return err
		}
	}

	s.ready = true

	return nil
}

// Persist inserts the record and flushes it to the database.
func (s *SQLiteSink) Persist(ctx context.Context, r Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.createTables(); err != nil {
		return "", err
	}

	if err := s.insert(r); err != nil {
		return "", err
	}

	if err := s.recorder.Flush(); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s#%s", s.location, r.ID), nil
}

// insert hands all rows of the record to the recorder at once, so a record
// is either buffered completely or not at all.
func (s *SQLiteSink) insert(r Record) error {
	rows, err := recordRows(r)
	if err != nil {
		return err
	}

	return s.recorder.InsertAll(rows)
}

func recordRows(r Record) ([]datarecording.Entry, error) {
	recs, err := json.Marshal(r.Recommendations)
	if err != nil {
		return nil, err
	}

	md, err := json.Marshal(r.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode metadata of %s: %w", r.Name, err)
	}

	rows := make([]datarecording.Entry, 0, 1+len(r.Steps)+len(r.Bottlenecks))
	rows = append(rows, datarecording.Entry{
		Table: TraceTable,
		Value: TraceRow{
			ID:              r.ID,
			Name:            r.Name,
			Timestamp:       FormatTimestamp(r.Timestamp),
			TotalDurationUS: r.TotalDurationUS,
			Recommendations: string(recs),
			Metadata:        string(md),
		},
	})

	for i, step := range r.Steps {
		rows = append(rows, datarecording.Entry{
			Table: StepTable,
			Value: StepRow{
				TraceID:       r.ID,
				Position:      i,
				Name:          step.Name,
				DurationUS:    step.DurationUS,
				Success:       step.Success,
				Error:         step.Error,
				MemoryDelta:   step.MemoryDelta,
				IsParallel:    step.IsParallel,
				ParallelCount: step.ParallelCount,
				SubErrors:     strings.Join(step.SubErrors, "\n"),
			},
		})
	}

	for _, b := range r.Bottlenecks {
		rows = append(rows, datarecording.Entry{
			Table: BottleneckTable,
			Value: BottleneckRow{
				TraceID:    r.ID,
				StepName:   b.StepName,
				DurationUS: b.DurationUS,
				Percentage: b.Percentage,
				Severity:   b.Severity,
				HasError:   b.HasError,
			},
		})
	}

	return rows, nil
}
