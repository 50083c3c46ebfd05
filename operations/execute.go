package operations

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/avast/retry-go/v4"

	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

var ErrNotSerializable = errors.New("data cannot be safely written to disk without data lost, " +
	"avoid type that can't be serialized")

// ExecuteConfig is the configuration for the ExecuteOperation function.
type ExecuteConfig[IN, DEP any] struct {
	retryConfig RetryConfig[IN, DEP]
	force       bool
}

type ExecuteOption[IN, DEP any] func(*ExecuteConfig[IN, DEP])

type RetryConfig[IN, DEP any] struct {
	// Enabled determines if the retry is enabled for the operation.
	Enabled bool

	// Policy is the retry policy to control the behavior of the retry.
	Policy RetryPolicy

	// InputHook is a function that returns an updated input before retrying the operation.
	// The operation when retried will use the input returned by this function.
	InputHook func(attempt uint, err error, input IN, deps DEP) IN
}

func newDisabledRetryConfig[IN, DEP any]() RetryConfig[IN, DEP] {
	return RetryConfig[IN, DEP]{
		Enabled: false,
		Policy: RetryPolicy{
			MaxAttempts: 10,
		},
	}
}

// RetryPolicy defines the arguments to control the retry behavior.
type RetryPolicy struct {
	MaxAttempts uint
}

func (p RetryPolicy) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(p.MaxAttempts),
	}
}

// WithRetry is an ExecuteOption that enables the default retry for the operation.
func WithRetry[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
	}
}

// WithRetryInput enables the default retry and transforms the input before each retry attempt.
func WithRetryInput[IN, DEP any](inputHookFunc func(uint, error, IN, DEP) IN) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig.Enabled = true
		c.retryConfig.InputHook = inputHookFunc
	}
}

// WithRetryConfig sets the retry configuration of the operation.
func WithRetryConfig[IN, DEP any](config RetryConfig[IN, DEP]) ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.retryConfig = config
	}
}

// WithForce executes the operation even if a successful report with the same input exists.
// Use it for side effects that are meant to happen again, like sending a message twice.
func WithForce[IN, DEP any]() ExecuteOption[IN, DEP] {
	return func(c *ExecuteConfig[IN, DEP]) {
		c.force = true
	}
}

// ExecuteOperation executes an operation with the given input and dependencies.
// Execution will return the previous successful execution result and skip execution if there
// was a previous successful run with the same input found in the Reports of the current run,
// unless WithForce is given.
//
// Retry:
// Operations are not retried by default. Use WithRetry or WithRetryConfig to enable it.
// To cancel the retry early, return an error with NewUnrecoverableError.
//
// Input & Output:
// The input and output must be JSON serializable, otherwise ErrNotSerializable is returned.
func ExecuteOperation[IN, OUT, DEP any](
	b Bundle,
	operation *Operation[IN, OUT, DEP],
	deps DEP,
	input IN,
	opts ...ExecuteOption[IN, DEP],
) (Report[IN, OUT], error) {
	if !IsSerializable(b.Logger, input) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s input: %w", operation.def.ID, ErrNotSerializable)
	}

	executeConfig := &ExecuteConfig[IN, DEP]{
		retryConfig: newDisabledRetryConfig[IN, DEP](),
	}
	for _, opt := range opts {
		opt(executeConfig)
	}

	if !executeConfig.force {
		if previousReport, found := loadPreviousSuccessfulReport[IN, OUT](b, operation.def, input); found {
			b.Logger.Infow("Operation already executed. Returning previous result",
				"operation", operation.def.String(), "report_id", previousReport.ID)

			return previousReport, nil
		}
	}

	var output OUT
	var err error

	if executeConfig.retryConfig.Enabled {
		var inputTemp = input

		retryOpts := executeConfig.retryConfig.Policy.options()
		retryOpts = append(retryOpts, retry.Context(b.GetContext()))
		retryOpts = append(retryOpts, retry.OnRetry(func(attempt uint, err error) {
			b.Logger.Infow("Operation failed. Retrying...",
				"operation", operation.def.ID, "attempt", attempt, "error", err)

			if executeConfig.retryConfig.InputHook != nil {
				inputTemp = executeConfig.retryConfig.InputHook(attempt, err, inputTemp, deps)
			}
		}))

		output, err = retry.DoWithData(
			func() (OUT, error) {
				return operation.execute(b, deps, inputTemp)
			},
			retryOpts...,
		)
	} else {
		output, err = operation.execute(b, deps, input)
	}

	if err == nil && !IsSerializable(b.Logger, output) {
		return Report[IN, OUT]{}, fmt.Errorf("operation %s output: %w", operation.def.ID, ErrNotSerializable)
	}

	report := NewReport(operation.def, input, output, err)
	report.Forced = executeConfig.force
	if rerr := b.reporter.AddReport(genericReport(report)); rerr != nil {
		return Report[IN, OUT]{}, rerr
	}

	if err != nil {
		// the report only keeps the message, callers need the original chain for errors.Is
		return report, unwrapUnrecoverable(err)
	}

	return report, nil
}

// NewUnrecoverableError creates an error that indicates an unrecoverable error.
// If this error is returned inside an operation, the operation will no longer retry.
func NewUnrecoverableError(err error) error {
	return retry.Unrecoverable(err)
}

func unwrapUnrecoverable(err error) error {
	if retry.IsRecoverable(err) {
		return err
	}
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}

	return err
}

// IsSerializable reports whether v survives a JSON round trip into a value of its own type.
func IsSerializable[T any](lggr logger.Logger, v T) bool {
	data, err := json.Marshal(v)
	if err != nil {
		lggr.Errorw("Failed to marshal value", "type", reflect.TypeOf(v), "error", err)

		return false
	}

	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		lggr.Errorw("Failed to unmarshal value", "type", reflect.TypeOf(v), "error", err)

		return false
	}

	return true
}

func loadPreviousSuccessfulReport[IN, OUT any](b Bundle, def Definition, input IN) (Report[IN, OUT], bool) {
	prevReports, err := b.reporter.GetReports()
	if err != nil {
		b.Logger.Errorw("Failed to get reports", "error", err)

		return Report[IN, OUT]{}, false
	}
	currentHash, err := uniqueHash(def, input)
	if err != nil {
		b.Logger.Errorw("Failed to construct unique hash", "error", err)

		return Report[IN, OUT]{}, false
	}

	for _, report := range prevReports {
		if report.Err != nil {
			continue
		}
		reportHash, err := uniqueHash(report.Def, report.Input)
		if err != nil {
			b.Logger.Errorw("Failed to construct unique hash for previous report", "error", err)

			continue
		}
		if reportHash != currentHash {
			continue
		}

		typedReport, ok := typeReport[IN, OUT](report)
		if !ok {
			b.Logger.Debugw("Previous execution found but its report could not be typed",
				"id", def.ID, "report_id", report.ID)

			continue
		}

		return typedReport, true
	}

	return Report[IN, OUT]{}, false
}

// uniqueHash identifies an execution by the operation id, version and input.
func uniqueHash(def Definition, input any) (string, error) {
	version := ""
	if def.Version != nil {
		version = def.Version.String()
	}

	data, err := json.Marshal(struct {
		ID      string `json:"id"`
		Version string `json:"version"`
		Input   any    `json:"input"`
	}{def.ID, version, input})
	if err != nil {
		return "", err
	}

	// round trip so typed input and input read back as any hash the same
	var normalized any
	if err = json.Unmarshal(data, &normalized); err != nil {
		return "", err
	}
	if data, err = json.Marshal(normalized); err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:]), nil
}
