// Package contracts holds the Go bindings of the MockClient and Mailbox contracts and loads the
// compiled MockClient from its Hardhat artifact.
package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultArtifactPath is where Hardhat writes the compiled MockClient.
const DefaultArtifactPath = "artifacts/contracts/MockClient.sol/MockClient.json"

// Artifact is a compiled contract as written by Hardhat.
type Artifact struct {
	ContractName string
	SourceName   string
	ABI          abi.ABI
	Bytecode     hexutil.Bytes
	// Path is the file the artifact was read from, empty when built in memory.
	Path string
}

type hardhatArtifact struct {
	Format       string          `json:"_format"`
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     hexutil.Bytes   `json:"bytecode"`
}

// LoadArtifact reads a Hardhat artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	a, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	a.Path = path

	return a, nil
}

// ParseArtifact decodes a Hardhat artifact. The artifact must carry creation bytecode, so
// interfaces and abstract contracts are rejected.
func ParseArtifact(data []byte) (*Artifact, error) {
	var raw hardhatArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact: %w", err)
	}
	if len(raw.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}

	parsed, err := abi.JSON(bytes.NewReader(raw.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse artifact abi: %w", err)
	}
	if len(raw.Bytecode) == 0 {
		return nil, fmt.Errorf("artifact of %q has no bytecode", raw.ContractName)
	}

	return &Artifact{
		ContractName: raw.ContractName,
		SourceName:   raw.SourceName,
		ABI:          parsed,
		Bytecode:     raw.Bytecode,
	}, nil
}

// MockClientArtifact builds a MockClient artifact from the embedded ABI and the given creation
// bytecode.
func MockClientArtifact(bytecode []byte) (*Artifact, error) {
	parsed, err := MockClientABI()
	if err != nil {
		return nil, err
	}
	if len(bytecode) == 0 {
		return nil, errors.New("bytecode is required")
	}

	return &Artifact{
		ContractName: "MockClient",
		SourceName:   "contracts/MockClient.sol",
		ABI:          *parsed,
		Bytecode:     bytecode,
	}, nil
}

// FullyQualifiedName returns "<source>:<contract>", the name block explorers verify against.
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// PackConstructorArgs ABI encodes the (mailbox, hook) constructor arguments.
func (a *Artifact) PackConstructorArgs(mailbox, hook common.Address) ([]byte, error) {
	return a.ABI.Constructor.Inputs.Pack(mailbox, hook)
}

// BuildInfo is the solc input and compiler version of a Hardhat compilation.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

// LoadBuildInfo follows the debug file written next to an artifact to the build info of the
// compilation that produced it.
func LoadBuildInfo(artifactPath string) (*BuildInfo, error) {
	dbgPath := artifactPath[:len(artifactPath)-len(filepath.Ext(artifactPath))] + ".dbg.json"

	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact debug file: %w", err)
	}

	var dbg struct {
		BuildInfo string `json:"buildInfo"`
	}
	if err = json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", dbgPath, err)
	}
	if dbg.BuildInfo == "" {
		return nil, fmt.Errorf("%s does not reference a build info", dbgPath)
	}

	path := dbg.BuildInfo
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(dbgPath), path)
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read build info: %w", err)
	}

	var info BuildInfo
	if err = json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal build info %s: %w", path, err)
	}
	if len(info.Input) == 0 || info.SolcLongVersion == "" {
		return nil, fmt.Errorf("build info %s has no compiler input or version", path)
	}

	return &info, nil
}
