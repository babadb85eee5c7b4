// Package monitoring serves the traces and the progress of a running
// pathtrace process over HTTP.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/pathtrace/reporting"
	"github.com/sarchlab/pathtrace/tracing"
)

// DefaultCapacity is the number of traces a monitor keeps by default.
const DefaultCapacity = 256

// Monitor keeps the most recent traces and progress bars of the process and
// serves them over HTTP.
type Monitor struct {
	portNumber int
	capacity   int
	logger     *slog.Logger
	renderer   *reporting.Renderer

	tracesLock sync.RWMutex
	traces     []tracing.Trace

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		capacity: DefaultCapacity,
		logger:   slog.Default(),
		renderer: reporting.NewRenderer(false),
	}
}

// WithPortNumber sets the port number of the monitor. Port 0 picks a free
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitoring port not allowed, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithCapacity sets how many traces the monitor keeps.
func (m *Monitor) WithCapacity(n int) *Monitor {
	if n > 0 {
		m.capacity = n
	}

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(l *slog.Logger) *Monitor {
	m.logger = l
	return m
}

// RecordTrace makes a trace available to monitoring clients. The oldest
// traces are dropped when the capacity is reached.
func (m *Monitor) RecordTrace(t tracing.Trace) {
	m.tracesLock.Lock()
	defer m.tracesLock.Unlock()

	m.traces = append(m.traces, t)
	if over := len(m.traces) - m.capacity; over > 0 {
		m.traces = append([]tracing.Trace(nil), m.traces[over:]...)
	}
}

// Traces returns the recorded traces, oldest first.
func (m *Monitor) Traces() []tracing.Trace {
	m.tracesLock.RLock()
	defer m.tracesLock.RUnlock()

	return append([]tracing.Trace(nil), m.traces...)
}

// latestTrace returns the most recent trace whose name or ID matches.
func (m *Monitor) latestTrace(key string) (tracing.Trace, bool) {
	m.tracesLock.RLock()
	defer m.tracesLock.RUnlock()

	for i := len(m.traces) - 1; i >= 0; i-- {
		if m.traces[i].Name == key || m.traces[i].ID == key {
			return m.traces[i], true
		}
	}

	return tracing.Trace{}, false
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/traces", m.listTraces).Methods(http.MethodGet)
	api.HandleFunc("/trace/{name}", m.traceDetails).Methods(http.MethodGet)
	api.HandleFunc("/report/{name}", m.traceReport).Methods(http.MethodGet)
	api.HandleFunc("/progress", m.listProgressBars).Methods(http.MethodGet)
	api.HandleFunc("/resource", m.listResources).Methods(http.MethodGet)
	api.HandleFunc("/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// StartServer starts serving in the background and returns the URL of the
// server.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("listen on port %d: %w", m.portNumber, err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring server started", "url", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server stopped", "error", err)
		}
	}()

	return url, nil
}

// Shutdown stops the server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type traceSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartedAt       time.Time `json:"started_at"`
	TotalDurationUS int64     `json:"total_duration_us"`
	Steps           int       `json:"steps"`
	Bottlenecks     int       `json:"bottlenecks"`
	FailedSteps     int       `json:"failed_steps"`
}

func (m *Monitor) listTraces(w http.ResponseWriter, _ *http.Request) {
	traces := m.Traces()

	rsp := make([]traceSummary, 0, len(traces))
	for _, t := range traces {
		rsp = append(rsp, traceSummary{
			ID:              t.ID,
			Name:            t.Name,
			StartedAt:       t.StartedAt,
			TotalDurationUS: t.TotalDurationMicros(),
			Steps:           len(t.Steps),
			Bottlenecks:     len(t.Bottlenecks),
			FailedSteps:     len(t.FailedSteps()),
		})
	}

	m.writeJSON(w, rsp)
}

// traceDetails serializes a trace. The optional field query parameter is a
// dot separated path into the trace, such as "Steps.0".
func (m *Monitor) traceDetails(w http.ResponseWriter, r *http.Request) {
	trace, ok := m.findTraceOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(trace)
	serializer.SetMaxDepth(4)

	if field := r.URL.Query().Get("field"); field != "" {
		err := serializer.SetEntryPoint(strings.Split(field, "."))
		if err != nil {
			m.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := serializer.Serialize(&buf); err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) traceReport(w http.ResponseWriter, r *http.Request) {
	trace, ok := m.findTraceOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(m.renderer.Render(trace)))
}

func (m *Monitor) findTraceOr404(
	w http.ResponseWriter,
	name string,
) (tracing.Trace, bool) {
	trace, ok := m.latestTrace(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Trace not found"))
	}

	return trace, ok
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressBarSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	memorySize, err := proc.MemoryInfo()
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

const maxProfileDuration = 30 * time.Second

// collectProfile records a CPU profile. The duration query parameter is a Go
// duration and defaults to one second.
func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("duration"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 || d > maxProfileDuration {
			m.writeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid profile duration %q", s))
			return
		}

		duration = d
	}

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		m.writeError(w, http.StatusConflict, err)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (m *Monitor) writeError(w http.ResponseWriter, status int, err error) {
	m.logger.Warn("monitoring request failed", "status", status, "error", err)

	w.WriteHeader(status)
	fmt.Fprintf(w, "Error: %s", err)
}
