package rpcclient

import (
	"errors"
	"fmt"
	"strings"
)

// URLSchemePreference defines which of an RPC's endpoints is dialed.
type URLSchemePreference int

const (
	URLSchemePreferenceNone URLSchemePreference = iota
	URLSchemePreferenceWS
	URLSchemePreferenceHTTP
)

// URLSchemePreferenceFromString converts "ws", "http" or "" to a URLSchemePreference.
func URLSchemePreferenceFromString(s string) (URLSchemePreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return URLSchemePreferenceNone, nil
	case "ws", "wss":
		return URLSchemePreferenceWS, nil
	case "http", "https":
		return URLSchemePreferenceHTTP, nil
	default:
		return URLSchemePreferenceNone, fmt.Errorf("invalid URL scheme preference: %q", s)
	}
}

func (p URLSchemePreference) String() string {
	switch p {
	case URLSchemePreferenceWS:
		return "ws"
	case URLSchemePreferenceHTTP:
		return "http"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p URLSchemePreference) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *URLSchemePreference) UnmarshalText(b []byte) error {
	v, err := URLSchemePreferenceFromString(string(b))
	if err != nil {
		return err
	}
	*p = v

	return nil
}

// RPC is a single node endpoint of a network.
type RPC struct {
	Name               string
	WSURL              string
	HTTPURL            string
	PreferredURLScheme URLSchemePreference
}

// ToEndpoint returns the URL to dial. The preferred scheme wins when set; otherwise HTTP is used
// when available, then WS.
func (r RPC) ToEndpoint() (string, error) {
	switch r.PreferredURLScheme {
	case URLSchemePreferenceWS:
		if r.WSURL == "" {
			return "", fmt.Errorf("rpc %q prefers ws but has no ws url", r.Name)
		}

		return r.WSURL, nil
	case URLSchemePreferenceHTTP:
		if r.HTTPURL == "" {
			return "", fmt.Errorf("rpc %q prefers http but has no http url", r.Name)
		}

		return r.HTTPURL, nil
	default:
		if r.HTTPURL != "" {
			return r.HTTPURL, nil
		}
		if r.WSURL != "" {
			return r.WSURL, nil
		}

		return "", errors.New("rpc " + r.Name + " has no url")
	}
}

// RPCConfig is the set of RPCs of one network.
type RPCConfig struct {
	// ChainName is used to label log lines and errors.
	ChainName string
	// ChainID is checked against eth_chainId when non zero.
	ChainID uint64
	RPCs    []RPC
}
