package operations

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Report is the result of one operation evaluation. Forwarded (nested)
// operations produce their own reports, linked through ChildReports and
// sharing the root evaluation's EvalID.
type Report struct {
	ID         string        `json:"id"`
	EvalID     string        `json:"evalId"`
	Shape      string        `json:"shape"`
	Candidates []Definition  `json:"candidates"`
	Success    bool          `json:"success"`
	Err        *ReportError  `json:"error"`
	Timestamp  *time.Time    `json:"timestamp"`
	Duration   time.Duration `json:"duration"`
	// ChildReports stores the report IDs of operations forwarded by this
	// evaluation's operators.
	ChildReports []string `json:"childReports"`
}

// NewReport creates a new report.
func NewReport(evalID, shape string, candidates []Definition, success bool, err error, childIDs ...string) Report {
	now := time.Now()
	r := Report{
		ID:           uuid.New().String(),
		EvalID:       evalID,
		Shape:        shape,
		Candidates:   candidates,
		Success:      success,
		Timestamp:    &now,
		ChildReports: childIDs,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError represents an error in the Report. Its purpose is to have an
// exported Message field for marshalling, as a native error can't be
// marshaled to JSON.
type ReportError struct {
	Message string `json:"message"`
}

// Error implements the error interface.
func (o ReportError) Error() string {
	return o.Message
}

var ErrReportNotFound = errors.New("report not found")

// Reporter manages reports. It can store them in memory, in the FS, etc.
type Reporter interface {
	GetReport(id string) (Report, error)
	GetReports() ([]Report, error)
	AddReport(report Report) error
}

// MemoryReporter stores reports in memory. This is thread-safe and can be
// used in a multi-threaded environment.
type MemoryReporter struct {
	reports []Report
	mu      sync.RWMutex
}

type MemoryReporterOption func(*MemoryReporter)

// WithReports is an option to initialize the MemoryReporter with a list of
// reports.
func WithReports(reports []Report) MemoryReporterOption {
	return func(mr *MemoryReporter) {
		mr.reports = reports
	}
}

// NewMemoryReporter creates a new MemoryReporter.
func NewMemoryReporter(options ...MemoryReporterOption) *MemoryReporter {
	reporter := &MemoryReporter{}
	for _, opt := range options {
		opt(reporter)
	}

	return reporter
}

// GetReport returns the report with the given ID, or ErrReportNotFound.
func (m *MemoryReporter) GetReport(id string) (Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}

	return Report{}, ErrReportNotFound
}

// GetReports returns all stored reports in insertion order.
func (m *MemoryReporter) GetReports() ([]Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Report, len(m.reports))
	copy(out, m.reports)

	return out, nil
}

// AddReport stores a report.
func (m *MemoryReporter) AddReport(report Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = append(m.reports, report)

	return nil
}
