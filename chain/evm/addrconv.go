package evm

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AddressToBytes32 canonicalizes a 20-byte address into the 32-byte form used to address
// cross-chain messages: big-endian, left padded with zeros, so the address occupies the low
// order bytes.
func AddressToBytes32(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[32-common.AddressLength:], addr.Bytes())

	return out
}

// Bytes32ToAddress strips the 12 leading zero bytes of a canonicalized address. It fails when the
// padding is not zero, which means the value is not an EVM address.
func Bytes32ToAddress(b [32]byte) (common.Address, error) {
	pad := b[:32-common.AddressLength]
	if !bytes.Equal(pad, make([]byte, len(pad))) {
		return common.Address{}, fmt.Errorf("bytes32 %s is not a left padded EVM address", common.Hash(b).Hex())
	}

	return common.BytesToAddress(b[32-common.AddressLength:]), nil
}

// ParseAddress parses a hex encoded 20-byte address, with or without the 0x prefix.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid EVM address format: %s", address)
	}

	return common.HexToAddress(address), nil
}
