package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sarchlab/pathtrace/datarecording"
	"github.com/sarchlab/pathtrace/tracing"
)

// LoadRecords reads back the records stored by a SQLiteSink, oldest first.
// An empty name loads every record.
func LoadRecords(
	ctx context.Context,
	reader datarecording.DataReader,
	name string,
) ([]Record, error) {
	reader.MapTable(TraceTable, TraceRow{})
	reader.MapTable(StepTable, StepRow{})
	reader.MapTable(BottleneckTable, BottleneckRow{})

	params := datarecording.QueryParams{OrderBy: "Timestamp ASC, rowid ASC"}
	if name != "" {
		params.Where = "Name = ?"
		params.Args = []any{name}
	}

	rows, _, err := reader.Query(ctx, TraceTable, params)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		r, err := loadRecord(ctx, reader, row.(*TraceRow))
		if err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, nil
}

func loadRecord(
	ctx context.Context,
	reader datarecording.DataReader,
	row *TraceRow,
) (Record, error) {
	ts, err := ParseTimestamp(row.Timestamp)
	if err != nil {
		return Record{}, fmt.Errorf("trace %s: %w", row.ID, err)
	}

	r := Record{
		ID:              row.ID,
		Name:            row.Name,
		Timestamp:       ts,
		TotalDurationUS: row.TotalDurationUS,
	}

	if err := json.Unmarshal([]byte(row.Recommendations), &r.Recommendations); err != nil {
		return Record{}, fmt.Errorf("decode recommendations of %s: %w", row.ID, err)
	}

	if err := json.Unmarshal([]byte(row.Metadata), &r.Metadata); err != nil {
		return Record{}, fmt.Errorf("decode metadata of %s: %w", row.ID, err)
	}

	byTrace := datarecording.QueryParams{
		Where: "TraceID = ?",
		Args:  []any{row.ID},
	}

	byTrace.OrderBy = "Position ASC"
	steps, _, err := reader.Query(ctx, StepTable, byTrace)
	if err != nil {
		return Record{}, fmt.Errorf("query steps of %s: %w", row.ID, err)
	}

	for _, s := range steps {
		r.Steps = append(r.Steps, stepRecordFromRow(s.(*StepRow)))
	}

	byTrace.OrderBy = "rowid ASC"
	bottlenecks, _, err := reader.Query(ctx, BottleneckTable, byTrace)
	if err != nil {
		return Record{}, fmt.Errorf("query bottlenecks of %s: %w", row.ID, err)
	}

	for _, b := range bottlenecks {
		b := b.(*BottleneckRow)
		r.Bottlenecks = append(r.Bottlenecks, BottleneckRecord{
			StepName:   b.StepName,
			DurationUS: b.DurationUS,
			Percentage: b.Percentage,
			Severity:   b.Severity,
			HasError:   b.HasError,
		})
	}

	return r, nil
}

func stepRecordFromRow(row *StepRow) StepRecord {
	s := StepRecord{
		Name:          row.Name,
		DurationUS:    row.DurationUS,
		Success:       row.Success,
		Error:         row.Error,
		MemoryDelta:   row.MemoryDelta,
		IsParallel:    row.IsParallel,
		ParallelCount: row.ParallelCount,
	}

	if row.SubErrors != "" {
		s.SubErrors = strings.Split(row.SubErrors, "\n")
	}

	return s
}

// Trace rebuilds the trace a record was made from. Errors come back as plain
// messages.
func (r Record) Trace() tracing.Trace {
	t := tracing.Trace{
		ID:              r.ID,
		Name:            r.Name,
		StartedAt:       r.Timestamp,
		TotalDuration:   time.Duration(r.TotalDurationUS) * time.Microsecond,
		Steps:           make([]tracing.StepResult, 0, len(r.Steps)),
		Bottlenecks:     make([]tracing.Bottleneck, 0, len(r.Bottlenecks)),
		Recommendations: append([]string{}, r.Recommendations...),
		Metadata:        r.Metadata,
	}

	for _, s := range r.Steps {
		step := tracing.StepResult{
			Name:          s.Name,
			Duration:      time.Duration(s.DurationUS) * time.Microsecond,
			MemoryDelta:   s.MemoryDelta,
			Timestamp:     s.Timestamp,
			IsParallel:    s.IsParallel,
			ParallelCount: s.ParallelCount,
		}

		if !s.Success {
			msg := s.Error
			if msg == "" {
				msg = "failed"
			}
			step.Err = errors.New(msg)
		}

		for _, sub := range s.SubErrors {
			step.SubErrors = append(step.SubErrors, errors.New(sub))
		}

		t.Steps = append(t.Steps, step)
	}

	for _, b := range r.Bottlenecks {
		t.Bottlenecks = append(t.Bottlenecks, tracing.Bottleneck{
			StepName:   b.StepName,
			Duration:   time.Duration(b.DurationUS) * time.Microsecond,
			Percentage: b.Percentage,
			Severity:   parseSeverity(b.Severity),
			HasError:   b.HasError,
		})
	}

	return t
}

func parseSeverity(s string) tracing.Severity {
	switch s {
	case tracing.SeverityCritical.String():
		return tracing.SeverityCritical
	case tracing.SeverityMajor.String():
		return tracing.SeverityMajor
	default:
		return tracing.SeverityMinor
	}
}
