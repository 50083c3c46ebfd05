package operations

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartcontractkit/mailbox-client-deployments/internal/jsonutils"
)

// Report is the result of an operation.
// It contains the inputs and other metadata that was used to execute the operation.
type Report[IN, OUT any] struct {
	ID        string       `json:"id"`
	Def       Definition   `json:"definition"`
	Output    OUT          `json:"output"`
	Input     IN           `json:"input"`
	Timestamp *time.Time   `json:"timestamp"`
	Err       *ReportError `json:"error"`
	// indicates if the operation was forced to run even if the same op was run previously with the same input.
	Forced bool `json:"forced,omitempty"`
}

// ToGenericReport converts the Report to a generic Report.
func (r Report[IN, OUT]) ToGenericReport() Report[any, any] {
	return genericReport(r)
}

// NewReport creates a new report.
func NewReport[IN, OUT any](def Definition, input IN, output OUT, err error) Report[IN, OUT] {
	now := time.Now()
	r := Report[IN, OUT]{
		ID:        uuid.New().String(),
		Def:       def,
		Output:    output,
		Input:     input,
		Timestamp: &now,
	}
	if err != nil {
		r.Err = &ReportError{Message: err.Error()}
	}

	return r
}

// ReportError represents an error in the Report. Its purpose is to have an exported field
// `Message` for marshalling as the native error cant be marshaled to JSON.
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
	GetReport(id string) (Report[any, any], error)
	GetReports() ([]Report[any, any], error)
	AddReport(report Report[any, any]) error
}

// MemoryReporter stores reports in memory.
// This is thread-safe and can be used in a multi-threaded environment.
type MemoryReporter struct {
	reports []Report[any, any]
	mu      sync.RWMutex
}

type MemoryReporterOption func(*MemoryReporter)

// WithReports is an option to initialize the MemoryReporter with a list of reports.
func WithReports(reports []Report[any, any]) MemoryReporterOption {
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

// AddReport adds a report to the memory reporter.
func (e *MemoryReporter) AddReport(report Report[any, any]) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reports = append(e.reports, report)

	return nil
}

// GetReports returns all reports.
func (e *MemoryReporter) GetReports() ([]Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	reports := make([]Report[any, any], len(e.reports))
	copy(reports, e.reports)

	return reports, nil
}

// GetReport returns a report by ID.
// Returns ErrReportNotFound if the report is not found.
func (e *MemoryReporter) GetReport(id string) (Report[any, any], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, report := range e.reports {
		if report.ID == id {
			return report, nil
		}
	}

	return Report[any, any]{}, fmt.Errorf("report_id %s: %w", id, ErrReportNotFound)
}

// FileReporter keeps the reports of the current run in memory and rewrites the reports file
// after every added report. Reports from earlier runs found in the file are preserved in the
// file but are not returned by GetReports, so a new run never skips an operation because of an
// older run.
type FileReporter struct {
	*MemoryReporter

	path     string
	mu       sync.Mutex
	previous []Report[any, any]
}

// NewFileReporter creates a FileReporter writing to path. A missing file is not an error.
func NewFileReporter(path string) (*FileReporter, error) {
	previous, err := LoadReports(path)
	if err != nil {
		return nil, err
	}

	return &FileReporter{
		MemoryReporter: NewMemoryReporter(),
		path:           path,
		previous:       previous,
	}, nil
}

// Path returns the reports file path.
func (r *FileReporter) Path() string {
	return r.path
}

// AddReport records the report and writes every known report to the file.
func (r *FileReporter) AddReport(report Report[any, any]) error {
	if err := r.MemoryReporter.AddReport(report); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.MemoryReporter.GetReports()
	if err != nil {
		return err
	}

	all := make([]Report[any, any], 0, len(r.previous)+len(current))
	all = append(all, r.previous...)
	all = append(all, current...)

	if err = jsonutils.WriteFile(r.path, all); err != nil {
		return fmt.Errorf("failed to write reports to %s: %w", r.path, err)
	}

	return nil
}

// LoadReports reads the reports written by a FileReporter. A missing file yields no reports.
func LoadReports(path string) ([]Report[any, any], error) {
	fsys, ok := os.DirFS(filepath.Dir(path)).(fs.ReadFileFS)
	if !ok {
		return nil, fmt.Errorf("failed to open reports directory of %s", path)
	}

	reports, err := jsonutils.LoadFromFS[[]Report[any, any]](fsys, filepath.Base(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to load reports from %s: %w", path, err)
	}

	return reports, nil
}

func genericReport[IN, OUT any](r Report[IN, OUT]) Report[any, any] {
	return Report[any, any]{
		ID:        r.ID,
		Def:       r.Def,
		Output:    r.Output,
		Input:     r.Input,
		Timestamp: r.Timestamp,
		Err:       r.Err,
		Forced:    r.Forced,
	}
}

// typeReport attempts to convert Report[any,any] type into Report[IN,OUT].
func typeReport[IN, OUT any](r Report[any, any]) (Report[IN, OUT], bool) {
	// generic values lose their types through JSON, e.g. structs become maps, so convert them
	// back through JSON into the typed report
	inputBytes, err := json.Marshal(r.Input)
	if err != nil {
		return Report[IN, OUT]{}, false
	}
	var input IN
	if err = json.Unmarshal(inputBytes, &input); err != nil {
		return Report[IN, OUT]{}, false
	}

	outputBytes, err := json.Marshal(r.Output)
	if err != nil {
		return Report[IN, OUT]{}, false
	}
	var output OUT
	if err = json.Unmarshal(outputBytes, &output); err != nil {
		return Report[IN, OUT]{}, false
	}

	return Report[IN, OUT]{
		ID:        r.ID,
		Def:       r.Def,
		Output:    output,
		Input:     input,
		Timestamp: r.Timestamp,
		Err:       r.Err,
		Forced:    r.Forced,
	}, true
}
