package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/syllabus/internal/config"
)

func TestStatusReportsBackendAndSession(t *testing.T) {
	testEnv(t)
	out, err := executeCommand(rootCmd, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current:      none")
	assert.Contains(t, out, "Sessions:     0")
	assert.Regexp(t, `Backend: +http://\S+ ok`, out)
	assert.Contains(t, out, "Answer style: concise")

	id, err := executeCommand(rootCmd, "sessions", "new")
	require.NoError(t, err)
	out, err = executeCommand(rootCmd, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current:      "+strings.TrimSpace(id))
	assert.Contains(t, out, "Sessions:     1")
}

func TestStatusUnreachableBackend(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvBackendURL, "http://127.0.0.1:1")
	out, err := executeCommand(rootCmd, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "unreachable")
}

func TestInvalidConfigFails(t *testing.T) {
	testEnv(t)
	t.Setenv(config.EnvBackendURL, "ftp://nowhere")
	_, err := executeCommand(rootCmd, "status")
	assert.ErrorContains(t, err, "invalid backend_url")
}
