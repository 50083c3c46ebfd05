package operations

import (
	"context"

	"github.com/Masterminds/semver/v3"

	"github.com/smartcontractkit/mailbox-client-deployments/pkg/logger"
)

// Bundle contains the dependencies shared by every operation handler: the logger, the reporter
// and the context of the run. Use NewBundle to create a new Bundle.
type Bundle struct {
	Logger     logger.Logger
	GetContext func() context.Context
	reporter   Reporter
}

// NewBundle creates and returns a new Bundle.
func NewBundle(getContext func() context.Context, lggr logger.Logger, reporter Reporter) Bundle {
	if reporter == nil {
		reporter = NewMemoryReporter()
	}

	return Bundle{
		Logger:     lggr,
		GetContext: getContext,
		reporter:   reporter,
	}
}

// Reporter returns the reporter the bundle records reports with.
func (b Bundle) Reporter() Reporter {
	return b.reporter
}

// OperationHandler is the function signature of an operation handler.
type OperationHandler[IN, OUT, DEP any] func(b Bundle, deps DEP, input IN) (output OUT, err error)

// Definition identifies an operation in reports. Two operations are the same when ID and
// Version match, e.g. mockclient-deploy@1.0.0.
type Definition struct {
	ID          string          `json:"id"`
	Version     *semver.Version `json:"version"`
	Description string          `json:"description"`
}

// String returns id@version.
func (d Definition) String() string {
	if d.Version == nil {
		return d.ID
	}

	return d.ID + "@" + d.Version.String()
}

// Operation performs at most one on-chain side effect or one read call, with typed input,
// output and dependencies. Inputs and outputs must serialize to JSON because they are stored in
// reports.
type Operation[IN, OUT, DEP any] struct {
	def     Definition
	handler OperationHandler[IN, OUT, DEP]
}

// ID returns the operation ID.
func (o *Operation[IN, OUT, DEP]) ID() string {
	return o.def.ID
}

// Def returns the operation definition.
func (o *Operation[IN, OUT, DEP]) Def() Definition {
	return o.def
}

func (o *Operation[IN, OUT, DEP]) execute(b Bundle, deps DEP, input IN) (OUT, error) {
	b.Logger.Infow("Executing operation", "operation", o.def.String(), "description", o.def.Description)

	return o.handler(b, deps, input)
}

// NewOperation creates an operation. It is usually declared once as a package variable.
func NewOperation[IN, OUT, DEP any](
	id string, version *semver.Version, description string, handler OperationHandler[IN, OUT, DEP],
) *Operation[IN, OUT, DEP] {
	return &Operation[IN, OUT, DEP]{
		def: Definition{
			ID:          id,
			Version:     version,
			Description: description,
		},
		handler: handler,
	}
}
