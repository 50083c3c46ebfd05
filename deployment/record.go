// Package deployment holds the persisted deployment records of the mailbox client contracts and
// the error kinds shared across the deploy, enroll and send workflow.
package deployment

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Record describes one deployed client contract on one network.
type Record struct {
	// Address is the deployed client contract.
	Address common.Address `json:"address"`
	// Mailbox is the router the client was constructed with.
	Mailbox common.Address `json:"mailbox"`
	// ChainID doubles as the message domain of the network.
	ChainID uint32 `json:"chainId"`
	// Network is the registry name of the network and the key of the record in a Set.
	Network string `json:"network"`
	// ConstructorArgs are the raw constructor arguments in order: mailbox then hook.
	ConstructorArgs []hexutil.Bytes `json:"constructorArgs"`
}

// NewRecord builds the record for a client constructed with (mailbox, hook).
func NewRecord(network string, chainID uint32, address, mailbox, hook common.Address) Record {
	return Record{
		Address: address,
		Mailbox: mailbox,
		ChainID: chainID,
		Network: network,
		ConstructorArgs: []hexutil.Bytes{
			mailbox.Bytes(),
			hook.Bytes(),
		},
	}
}

// Hook returns the hook constructor argument, or the zero address when absent.
func (r Record) Hook() common.Address {
	if len(r.ConstructorArgs) < 2 {
		return common.Address{}
	}

	return common.BytesToAddress(r.ConstructorArgs[1])
}

// Validate checks the record against the invariants of the deployment file.
func (r Record) Validate() error {
	var errs []error

	if r.Network == "" {
		errs = append(errs, errors.New("network is required"))
	}
	if r.ChainID == 0 {
		errs = append(errs, errors.New("chainId must be positive"))
	}
	if r.Address == (common.Address{}) {
		errs = append(errs, errors.New("address must not be the zero address"))
	}
	if r.Mailbox == (common.Address{}) {
		errs = append(errs, errors.New("mailbox must not be the zero address"))
	}
	for i, arg := range r.ConstructorArgs {
		if len(arg) != common.AddressLength {
			errs = append(errs, fmt.Errorf("constructorArgs[%d] must be %d bytes, got %d", i, common.AddressLength, len(arg)))
		}
	}

	return errors.Join(errs...)
}

// Set maps a network name to the deployment record on that network.
type Set map[string]Record

// Get returns the record for network.
func (s Set) Get(network string) (Record, bool) {
	r, ok := s[network]

	return r, ok
}

// Put inserts or overwrites the record keyed by its network.
func (s Set) Put(r Record) {
	s[r.Network] = r
}

// Names returns the network names in the set, sorted.
func (s Set) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Clone returns a shallow copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	maps.Copy(out, s)

	return out
}

// Pair returns the local and remote records. Both must be present before enrollment or
// dispatch can run.
func (s Set) Pair(local, remote string) (Record, Record, error) {
	if local == remote {
		return Record{}, Record{}, fmt.Errorf("%w: local and remote network are both %q", ErrConfiguration, local)
	}

	l, ok := s[local]
	if !ok {
		return Record{}, Record{}, fmt.Errorf("%w: no deployment recorded for %q", ErrMissingPeer, local)
	}
	r, ok := s[remote]
	if !ok {
		return Record{}, Record{}, fmt.Errorf("%w: no deployment recorded for %q", ErrMissingPeer, remote)
	}

	return l, r, nil
}

// Validate checks every record and that keys match record networks and chain ids are unique.
func (s Set) Validate() error {
	var errs []error
	chainIDs := make(map[uint32]string, len(s))

	for _, name := range s.Names() {
		r := s[name]
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("record %q: %w", name, err))
		}
		if r.Network != name {
			errs = append(errs, fmt.Errorf("record %q: network field is %q", name, r.Network))
		}
		if other, ok := chainIDs[r.ChainID]; ok && r.ChainID != 0 {
			errs = append(errs, fmt.Errorf("record %q: chainId %d already used by %q", name, r.ChainID, other))
		}
		chainIDs[r.ChainID] = name
	}

	return errors.Join(errs...)
}
