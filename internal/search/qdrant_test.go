package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLDefaultsToGRPCPort(t *testing.T) {
	host, port, useTLS, err := parseURL("http://localhost:6333")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
	assert.False(t, useTLS)
}

func TestParseURLHonorsExplicitGRPCPort(t *testing.T) {
	host, port, useTLS, err := parseURL("https://cluster.cloud.qdrant.io:6334")
	require.NoError(t, err)
	assert.Equal(t, "cluster.cloud.qdrant.io", host)
	assert.Equal(t, 6334, port)
	assert.True(t, useTLS)
}

func TestParseURLDefaultsPortWhenAbsent(t *testing.T) {
	_, port, _, err := parseURL("http://localhost")
	require.NoError(t, err)
	assert.Equal(t, 6334, port)
}

func TestParseURLRejectsInvalidURL(t *testing.T) {
	_, _, _, err := parseURL("not a url")
	assert.Error(t, err)
}
