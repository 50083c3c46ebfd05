package rpcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPC_ToEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    RPC
		want    string
		wantErr string
	}{
		{
			name: "prefers ws",
			give: RPC{Name: "a", WSURL: "wss://a", HTTPURL: "https://a", PreferredURLScheme: URLSchemePreferenceWS},
			want: "wss://a",
		},
		{
			name: "prefers http",
			give: RPC{Name: "a", WSURL: "wss://a", HTTPURL: "https://a", PreferredURLScheme: URLSchemePreferenceHTTP},
			want: "https://a",
		},
		{
			name: "no preference defaults to http",
			give: RPC{Name: "a", WSURL: "wss://a", HTTPURL: "https://a"},
			want: "https://a",
		},
		{
			name: "no preference falls back to ws",
			give: RPC{Name: "a", WSURL: "wss://a"},
			want: "wss://a",
		},
		{
			name:    "preferred scheme missing",
			give:    RPC{Name: "a", HTTPURL: "https://a", PreferredURLScheme: URLSchemePreferenceWS},
			wantErr: `rpc "a" prefers ws but has no ws url`,
		},
		{
			name:    "no urls",
			give:    RPC{Name: "a"},
			wantErr: "rpc a has no url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.give.ToEndpoint()
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLSchemePreference_Text(t *testing.T) {
	t.Parallel()

	var p URLSchemePreference
	require.NoError(t, p.UnmarshalText([]byte("HTTP")))
	assert.Equal(t, URLSchemePreferenceHTTP, p)

	b, err := URLSchemePreferenceWS.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ws", string(b))

	require.Error(t, p.UnmarshalText([]byte("grpc")))
}
