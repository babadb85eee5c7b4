package tracing

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// A MemorySampler reports the current memory usage of the process in bytes.
type MemorySampler interface {
	SampleMemory() (int64, error)
}

// ProcessMemorySampler reads the resident set size of the current process.
type ProcessMemorySampler struct {
	proc *process.Process
}

// NewProcessMemorySampler creates a ProcessMemorySampler for the current
// process.
func NewProcessMemorySampler() (*ProcessMemorySampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}

	return &ProcessMemorySampler{proc: proc}, nil
}

// SampleMemory returns the RSS of the process.
func (s *ProcessMemorySampler) SampleMemory() (int64, error) {
	info, err := s.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}

	return int64(info.RSS), nil
}

// RuntimeMemorySampler reads the heap allocation of the Go runtime. It is
// cheaper and less noisy than the RSS, but it does not see memory outside of
// the Go heap.
type RuntimeMemorySampler struct{}

// SampleMemory returns the number of allocated heap bytes.
func (RuntimeMemorySampler) SampleMemory() (int64, error) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	return int64(stats.HeapAlloc), nil
}

// DefaultMemorySampler returns a ProcessMemorySampler, or a
// RuntimeMemorySampler if the process cannot be inspected.
func DefaultMemorySampler() MemorySampler {
	s, err := NewProcessMemorySampler()
	if err != nil {
		return RuntimeMemorySampler{}
	}

	return s
}
