/*
Package operations runs every on-chain side effect of the deploy, enroll and send workflow as a
versioned operation and records a report of each run.

An Operation pairs a Definition (id, semver version, description) with a handler that performs
at most one side effect, such as sending a single transaction. ExecuteOperation runs it, appends
a Report holding the input, output and error to the Bundle's Reporter, and returns the report.
Within one Bundle a successful operation is not executed twice for the same input: the earlier
report is returned instead.

# Reporters

MemoryReporter keeps the reports of the current run. FileReporter additionally writes all
reports, including the ones from earlier runs found in the file, as JSON after every report so
that a failed run leaves an audit trail next to the deployment file.

# Basic Usage

	op := operations.NewOperation("mockclient-deploy", semver.MustParse("1.0.0"),
		"Deploys the MockClient contract", handler)

	b := operations.NewBundle(ctx, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(b, op, deps, input)
*/
package operations
