// Package reporting renders traces for humans and persists them as
// structured records.
package reporting

import (
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/sarchlab/pathtrace/tracing"
)

// A Record is the serializable form of a trace.
type Record struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Timestamp       time.Time          `json:"timestamp"`
	TotalDurationUS int64              `json:"total_duration_us"`
	Steps           []StepRecord       `json:"steps"`
	Bottlenecks     []BottleneckRecord `json:"bottlenecks"`
	Recommendations []string           `json:"recommendations"`
	Metadata        map[string]any     `json:"metadata"`
}

// A StepRecord is the serializable form of a step result.
type StepRecord struct {
	Name          string    `json:"name"`
	DurationUS    int64     `json:"duration_us"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	MemoryDelta   int64     `json:"memory_delta"`
	Timestamp     time.Time `json:"timestamp"`
	IsParallel    bool      `json:"is_parallel"`
	ParallelCount int       `json:"parallel_count,omitempty"`
	SubErrors     []string  `json:"sub_errors,omitempty"`
}

// A BottleneckRecord is the serializable form of a bottleneck.
type BottleneckRecord struct {
	StepName   string  `json:"step_name"`
	DurationUS int64   `json:"duration_us"`
	Percentage float64 `json:"percentage"`
	Severity   string  `json:"severity"`
	HasError   bool    `json:"has_error"`
}

// NewRecord converts a trace into a record.
func NewRecord(t tracing.Trace) Record {
	r := Record{
		ID:              t.ID,
		Name:            t.Name,
		Timestamp:       t.StartedAt,
		TotalDurationUS: t.TotalDurationMicros(),
		Steps:           make([]StepRecord, 0, len(t.Steps)),
		Bottlenecks:     make([]BottleneckRecord, 0, len(t.Bottlenecks)),
		Recommendations: append([]string{}, t.Recommendations...),
		Metadata:        maps.Clone(t.Metadata),
	}

	for _, s := range t.Steps {
		r.Steps = append(r.Steps, newStepRecord(s))
	}

	for _, b := range t.Bottlenecks {
		r.Bottlenecks = append(r.Bottlenecks, BottleneckRecord{
			StepName:   b.StepName,
			DurationUS: b.Duration.Microseconds(),
			Percentage: b.Percentage,
			Severity:   b.Severity.String(),
			HasError:   b.HasError,
		})
	}

	return r
}

func newStepRecord(s tracing.StepResult) StepRecord {
	sr := StepRecord{
		Name:          s.Name,
		DurationUS:    s.Duration.Microseconds(),
		Success:       !s.Failed(),
		MemoryDelta:   s.MemoryDelta,
		Timestamp:     s.Timestamp,
		IsParallel:    s.IsParallel,
		ParallelCount: s.ParallelCount,
	}

	if s.Err != nil {
		sr.Error = s.Err.Error()
	}

	for _, err := range s.SubErrors {
		sr.SubErrors = append(sr.SubErrors, err.Error())
	}

	return sr
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// SanitizeName turns a trace name into something safe to use in file and
// table names.
func SanitizeName(name string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")

	if s == "" {
		return "trace"
	}

	return s
}

// timestampLayout is the ISO-8601 basic format, which avoids colons in file
// names.
const timestampLayout = "20060102T150405.000000Z"

// FormatTimestamp formats a timestamp for use in persisted names.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp reads a timestamp written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
