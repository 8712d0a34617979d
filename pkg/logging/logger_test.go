package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestContextCarrier(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithLogger(t.Context(), &logger)
	ctx = WithPass(ctx, "pass-1")
	ctx = WithItem(ctx, "rom-7")

	Ctx(ctx).Info().Msg("executing")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "pass-1", event["pass_id"])
	assert.Equal(t, "rom-7", event["external_id"])
	assert.Equal(t, "executing", event["message"])
}

func TestCtxFallsBackToDefault(t *testing.T) {
	assert.NotNil(t, Ctx(t.Context()))
	assert.NotNil(t, Ctx(nil)) //nolint:staticcheck // nil context is the documented fallback
}
