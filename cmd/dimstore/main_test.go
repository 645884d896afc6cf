package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jacentio/dimstore/bus"
	"github.com/jacentio/dimstore/internal/config"
)

func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dimstore.db")
	t.Setenv("DIMSTORE_BACKEND", "sqlite")
	t.Setenv("DIMSTORE_SQLITE_PATH", path)
	t.Setenv("DIMSTORE_LOG_LEVEL", "error")
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	require.NoError(t, err, out)
	return out
}

func TestSequenceCommands(t *testing.T) {
	useSQLite(t)
	run(t, "migrate")

	var got sequenceOutput
	require.NoError(t, json.Unmarshal([]byte(run(t, "sequence", "next", "city_id")), &got))
	assert.Equal(t, sequenceOutput{Sequence: "city_id", Value: 1}, got)

	require.NoError(t, json.Unmarshal([]byte(run(t, "sequence", "next", "city_id")), &got))
	assert.Equal(t, int64(2), got.Value)

	require.NoError(t, json.Unmarshal([]byte(run(t, "sequence", "show", "city_id")), &got))
	assert.Equal(t, sequenceOutput{Sequence: "city_id", Value: 2}, got)

	require.NoError(t, json.Unmarshal([]byte(run(t, "sequence", "show", "oblast_id")), &got))
	assert.Equal(t, sequenceOutput{Sequence: "oblast_id", Value: 0}, got)
}

func TestReadCommand(t *testing.T) {
	useSQLite(t)
	run(t, "migrate")

	var resp bus.ReadResponse
	require.NoError(t, json.Unmarshal([]byte(run(t, "read", "city", "--where", "oblast_id=3")), &resp))
	assert.Equal(t, bus.StatusOK, resp.Status)
	assert.JSONEq(t, `[]`, string(resp.Data))

	require.NoError(t, json.Unmarshal([]byte(run(t, "read", "city", "7")), &resp))
	assert.Equal(t, bus.StatusNotFound, resp.Status)

	_, err := execute("read", "city", "seven")
	assert.Error(t, err)
}

func TestBackendFlagOverridesEnvironment(t *testing.T) {
	useSQLite(t)

	_, err := execute("--backend", "mongodb", "migrate")
	assert.ErrorContains(t, err, "unknown backend")
}

func TestConfigFile(t *testing.T) {
	useSQLite(t)
	// Empty environment values do not mask the file.
	t.Setenv("DIMSTORE_SQLITE_PATH", "")

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "from-file.db")
	file := filepath.Join(dir, "dimstore.yaml")
	require.NoError(t, os.WriteFile(file, []byte("sqlite:\n  path: "+dbPath+"\n"), 0o600))

	run(t, "--config", file, "migrate")
	assert.FileExists(t, dbPath)
}

func TestLambdaHandler(t *testing.T) {
	a := &app{
		cfg: &config.Config{
			Backend: config.BackendSQLite,
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "dimstore.db")},
			Bus:     config.BusConfig{ReadTimeout: time.Second},
		},
		logger: zap.NewNop(),
	}
	ctx := context.Background()

	h, err := a.lambdaHandler(ctx, modeCommands, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.IsType(t, (func(context.Context, events.SQSEvent) (events.SQSEventResponse, error))(nil), h)

	h, err = a.lambdaHandler(ctx, modeReads, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.IsType(t, (func(context.Context, bus.ReadRequest) (bus.ReadResponse, error))(nil), h)

	_, err = a.lambdaHandler(ctx, "stream", prometheus.NewRegistry())
	assert.Error(t, err)
}
