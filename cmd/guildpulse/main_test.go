package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guildpulse/internal/auth"
)

func TestWithStatementTimeout(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		timeout time.Duration
		want    string
	}{
		{"url", "postgres://u:p@db:5432/gp?sslmode=disable", 5 * time.Second, "postgres://u:p@db:5432/gp?sslmode=disable&statement_timeout=5000"},
		{"url keeps explicit value", "postgres://db/gp?statement_timeout=100", 5 * time.Second, "postgres://db/gp?statement_timeout=100"},
		{"key value", "host=db dbname=gp", 2 * time.Second, "host=db dbname=gp statement_timeout=2000"},
		{"disabled", "host=db", 0, "host=db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withStatementTimeout(tt.dsn, tt.timeout))
		})
	}
}

func TestHashTokenCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"hash-token", "letmein"})
	require.NoError(t, root.Execute())

	ok, err := auth.VerifyToken("letmein", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, ok)
}
