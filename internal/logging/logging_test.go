package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buf})

	logger.Info("hidden")
	logger.Warn("shown", "job_id", "u-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "shown", entry["msg"])
	require.Equal(t, "u-1", entry["job_id"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Format: "TEXT", Writer: &buf}).Info("hello")

	require.Contains(t, buf.String(), "msg=hello")
}

func TestWithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Writer: &buf})
	pipeline := WithComponent(base, "pipeline").With("job_id", "u-2")

	ctx := IntoContext(context.Background(), pipeline)
	FromContext(ctx, base).Info("from ctx")
	require.Contains(t, buf.String(), `"component":"pipeline"`)
	require.Contains(t, buf.String(), `"job_id":"u-2"`)

	require.Same(t, base, FromContext(context.Background(), base))
}
