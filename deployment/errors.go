package deployment

import (
	"errors"
	"fmt"
)

// Error kinds shared by every stage of the deploy, enroll and send workflow. Errors returned by
// this module wrap one of these sentinels together with the underlying cause, so callers should
// match them with errors.Is.
var (
	// ErrConfiguration is returned when a credential is missing or the network configuration is
	// invalid. It is raised before any chain interaction.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnknownNetwork is returned when a network name is not present in the registry.
	ErrUnknownNetwork = fmt.Errorf("%w: unknown network", ErrConfiguration)
	// ErrMissingPeer is returned when enrollment or dispatch is attempted before both deployment
	// records exist.
	ErrMissingPeer = fmt.Errorf("%w: missing peer deployment", ErrConfiguration)
	// ErrDeploymentFailed is returned when the contract creation transaction reverts, times out
	// or cannot be submitted.
	ErrDeploymentFailed = errors.New("deployment failed")
	// ErrDeploymentFile is returned when the deployment file exists but cannot be read or parsed.
	ErrDeploymentFile = errors.New("deployment file error")
	// ErrTransaction is returned when a transaction reverts or its confirmation times out.
	ErrTransaction = errors.New("transaction error")
	// ErrQuote is returned when the fee quote read call fails.
	ErrQuote = errors.New("quote error")
)
