package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigo/workflows/internal/cfg"
	"github.com/scigo/workflows/pkg/errors"
	"github.com/scigo/workflows/workflows"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "SCIGO_LOG_LEVEL", "SCIGO_METRICS_TEXTFILE"} {
		t.Setenv(k, "")
	}
}

func TestRun_WritesMetricsTextfile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "memory.prom")
	t.Setenv("SCIGO_METRICS_TEXTFILE", path)

	var out bytes.Buffer
	code := run("decisiontree", func(ctx context.Context, s cfg.Settings, env workflows.Env) error {
		_, err := workflows.RunClassification(ctx, s.Classification, env)
		return err
	}, &out)
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "Test accuracy with Gini criterion: ")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `stage="After training Gini model",workflow="decisiontree"`)
}

func TestRun_Failures(t *testing.T) {
	clearEnv(t)
	code := run("clustering", func(context.Context, cfg.Settings, workflows.Env) error {
		return errors.New("boom")
	}, &bytes.Buffer{})
	assert.Equal(t, 1, code)

	code = run("clustering", func(context.Context, cfg.Settings, workflows.Env) error {
		var m map[string]int
		m["x"] = 1
		return nil
	}, &bytes.Buffer{})
	assert.Equal(t, 1, code, "a panic is reported as a failure")

	t.Setenv("SCIGO_LOG_LEVEL", "loud")
	code = run("clustering", func(context.Context, cfg.Settings, workflows.Env) error { return nil }, &bytes.Buffer{})
	assert.Equal(t, 1, code)

	t.Setenv("SCIGO_LOG_LEVEL", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	code = run("clustering", func(context.Context, cfg.Settings, workflows.Env) error { return nil }, &bytes.Buffer{})
	assert.Equal(t, 1, code)
}
