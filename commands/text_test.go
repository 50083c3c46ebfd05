package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_longDesc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "empty", give: "", want: ""},
		{name: "single line", give: "  Deploys clients.  ", want: "Deploys clients."},
		{
			name: "indented raw string",
			give: `
				First line
				second line.

				Next paragraph.
			`,
			want: "First line\nsecond line.\n\nNext paragraph.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, longDesc(tt.give))
		})
	}
}

func Test_examples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "empty", give: "", want: ""},
		{
			name: "indented raw string",
			give: `
				# Deploy
				mailboxctl deploy

				# Status
				mailboxctl status
			`,
			want: "  # Deploy\n  mailboxctl deploy\n\n  # Status\n  mailboxctl status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, examples(tt.give))
		})
	}
}
