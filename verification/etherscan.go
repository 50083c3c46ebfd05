package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
)

// DefaultAPIURL is the Etherscan v2 multichain endpoint. The chain is selected with the chainid
// parameter, so one API key serves every supported network.
const DefaultAPIURL = "https://api.etherscan.io/v2/api"

var (
	errAlreadyVerified = errors.New("already verified")
	errPending         = errors.New("verification pending")
)

// APIResponse is the envelope of every Etherscan response. Result is a string on failure and an
// action specific value on success.
type APIResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// ok reports whether the call succeeded.
func (r APIResponse) ok() bool {
	return r.Status == "1"
}

// resultString returns Result when it is a JSON string, else its raw text.
func (r APIResponse) resultString() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return string(r.Result)
	}

	return s
}

// SourceCodeResult is one entry of the getsourcecode result.
type SourceCodeResult struct {
	SourceCode      string `json:"SourceCode"`
	ABI             string `json:"ABI"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
}

// submission is the form of a verifysourcecode call.
type submission struct {
	Address         common.Address
	SourceCode      string
	ContractName    string
	CompilerVersion string
	ConstructorArgs string
}

// etherscan is a client of one chain of an Etherscan compatible API.
type etherscan struct {
	http    *resty.Client
	apiURL  string
	apiKey  string
	chainID uint32
}

func (c *etherscan) query(action string) map[string]string {
	return map[string]string{
		"chainid": strconv.FormatUint(uint64(c.chainID), 10),
		"module":  "contract",
		"action":  action,
		"apikey":  c.apiKey,
	}
}

func (c *etherscan) decode(action string, resp *resty.Response) (APIResponse, error) {
	if resp.StatusCode() != http.StatusOK {
		return APIResponse{}, fmt.Errorf("%s: unexpected status %s", action, resp.Status())
	}

	var data APIResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return APIResponse{}, fmt.Errorf("%s: failed to decode response: %w", action, err)
	}

	return data, nil
}

// IsVerified reports whether the explorer already has the source of address.
func (c *etherscan) IsVerified(ctx context.Context, address common.Address) (bool, error) {
	params := c.query("getsourcecode")
	params["address"] = address.Hex()

	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(c.apiURL)
	if err != nil {
		return false, fmt.Errorf("getsourcecode: %w", err)
	}
	data, err := c.decode("getsourcecode", resp)
	if err != nil {
		return false, err
	}
	if !data.ok() {
		return false, fmt.Errorf("getsourcecode: %s: %s", data.Message, data.resultString())
	}

	var result []SourceCodeResult
	if err = json.Unmarshal(data.Result, &result); err != nil {
		return false, fmt.Errorf("getsourcecode: failed to decode result: %w", err)
	}

	return len(result) > 0 && result[0].SourceCode != "", nil
}

// Submit sends the source for verification and returns the GUID to poll.
func (c *etherscan) Submit(ctx context.Context, s submission) (string, error) {
	form := map[string]string{
		"module":                "contract",
		"action":                "verifysourcecode",
		"apikey":                c.apiKey,
		"contractaddress":       s.Address.Hex(),
		"sourceCode":            s.SourceCode,
		"codeformat":            "solidity-standard-json-input",
		"contractname":          s.ContractName,
		"compilerversion":       s.CompilerVersion,
		"constructorArguements": s.ConstructorArgs, // sic, the API expects this spelling
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chainid", strconv.FormatUint(uint64(c.chainID), 10)).
		SetFormData(form).
		Post(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("verifysourcecode: %w", err)
	}
	data, err := c.decode("verifysourcecode", resp)
	if err != nil {
		return "", err
	}

	result := data.resultString()
	if !data.ok() {
		if strings.Contains(strings.ToLower(result), "already verified") {
			return "", errAlreadyVerified
		}

		return "", fmt.Errorf("verifysourcecode: %s: %s", data.Message, result)
	}
	if result == "" {
		return "", errors.New("verifysourcecode: empty guid")
	}

	return result, nil
}

// CheckStatus returns nil once the submission passed, errPending while it is queued and
// errAlreadyVerified when another submission won.
func (c *etherscan) CheckStatus(ctx context.Context, guid string) error {
	params := c.query("checkverifystatus")
	params["guid"] = guid

	resp, err := c.http.R().SetContext(ctx).SetQueryParams(params).Get(c.apiURL)
	if err != nil {
		return fmt.Errorf("checkverifystatus: %w", err)
	}
	data, err := c.decode("checkverifystatus", resp)
	if err != nil {
		return err
	}

	result := data.resultString()
	lower := strings.ToLower(result)
	switch {
	case strings.Contains(lower, "pending"):
		return errPending
	case strings.Contains(lower, "already verified"):
		return errAlreadyVerified
	case data.ok() && strings.HasPrefix(lower, "pass"):
		return nil
	default:
		return fmt.Errorf("checkverifystatus: %s", result)
	}
}
