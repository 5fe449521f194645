package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"No command", nil, []string{"serve", "--http=0.0.0.0:8090"}},
		{"Serve without port", []string{"serve", "--dev"}, []string{"serve", "--dev", "--http=0.0.0.0:8090"}},
		{"Explicit http flag", []string{"serve", "--http=127.0.0.1:9000"}, []string{"serve", "--http=127.0.0.1:9000"}},
		{"Separate http value", []string{"serve", "--http", "127.0.0.1:9000"}, []string{"serve", "--http", "127.0.0.1:9000"}},
		{"Other command", []string{"migrate", "up"}, []string{"migrate", "up"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serveArgs(tt.args, "8090"))
		})
	}
}
