package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforest/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY", "REDIS_URL",
		"ENVIRONMENT", "LOG_DIR", "OIDC_JWKS_URL", "MEDIA_URL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("TABLE_PREFIX", "test_")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("MEDIA_URL", "/media/")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReconcile_MissingBlobSettings(t *testing.T) {
	clearEnv(t)

	_, err := run(t, "reconcile-content-types", "--dry-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfig))
	assert.Contains(t, err.Error(), "S3_ACCESS_KEY")
	assert.Contains(t, err.Error(), "S3_BUCKET")
	assert.Equal(t, 1, exitCode(err))
}

func TestReconcile_RequiresDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_BUCKET", "media")
	t.Setenv("S3_ACCESS_KEY", "key")
	t.Setenv("S3_SECRET_KEY", "secret")

	_, err := run(t, "reconcile-content-types", "--document", "a", "--document", "b")
	assert.True(t, errors.Is(err, domain.ErrConfig))
}

func TestCommands_RequireDatabase(t *testing.T) {
	clearEnv(t)

	for _, args := range [][]string{
		{"migrate", "up"},
		{"migrate", "version"},
		{"canonicalize-titles"},
	} {
		_, err := run(t, args...)
		assert.True(t, errors.Is(err, domain.ErrConfig), "%v: %v", args, err)
	}
}

func TestMigrateDown_RejectsBadSteps(t *testing.T) {
	clearEnv(t)

	_, err := run(t, "migrate", "down", "zero")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrConfig))
}

func TestReconcileFlags(t *testing.T) {
	cmd := newReconcileCmd(&app{})
	require.NoError(t, cmd.ParseFlags([]string{"--resume", "--concurrency", "8", "--dry-run", "--document", "a,b", "--document", "c"}))

	docs, err := cmd.Flags().GetStringSlice("document")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, docs)

	n, err := cmd.Flags().GetInt("concurrency")
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(domain.ErrConfig))
	assert.Equal(t, 1, exitCode(&domain.ServiceUnavailableError{Service: "blob store", Err: errors.New("dial tcp")}))
}
