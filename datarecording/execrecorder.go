package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTable is the table that ExecRecorder writes into.
const ExecTable = "exec_info"

const execTimeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a program execution.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records when and how the program was run, next to the data
// of the run.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	now      func() time.Time
}

// NewExecRecorder creates an ExecRecorder that writes through recorder.
func NewExecRecorder(recorder DataRecorder) (*ExecRecorder, error) {
	if err := recorder.CreateTable(ExecTable, ExecInfo{}); err != nil {
		return nil, err
	}

	return &ExecRecorder{
		recorder: recorder,
		now:      time.Now,
	}, nil
}

// Start remembers the start time, the command line, and the working
// directory. Nothing is written until End.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", e.now().Format(execTimeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if wd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", wd})
	}
}

// Set adds a custom property of the run.
func (e *ExecRecorder) Set(property, value string) {
	e.entries = append(e.entries, ExecInfo{property, value})
}

// End writes the remembered properties along with the end time and flushes
// them.
func (e *ExecRecorder) End() error {
	e.entries = append(e.entries,
		ExecInfo{"End Time", e.now().Format(execTimeLayout)})

	for _, entry := range e.entries {
		if err := e.recorder.InsertData(ExecTable, entry); err != nil {
			return err
		}
	}

	e.entries = nil

	return e.recorder.Flush()
}
