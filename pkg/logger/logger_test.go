package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trestleapp/trestle/pkg/environment"
	"github.com/trestleapp/trestle/pkg/logger"
)

type requestIDKey struct{}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default with static attrs", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "trestle")),
		)
		log.Info("hello")

		rec := decodeRecord(t, &buf)
		assert.Equal(t, "hello", rec["msg"])
		assert.Equal(t, "trestle", rec["service"])
	})

	t.Run("debug suppressed at default level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf))
		log.Debug("invisible")
		assert.Zero(t, buf.Len())
	})

	t.Run("development preset enables debug text output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithEnvironment(environment.Development, "trestle"),
			logger.WithOutput(&buf),
		)
		log.Debug("visible")
		assert.Contains(t, buf.String(), "visible")
		assert.Contains(t, buf.String(), "env=development")
	})

	t.Run("context value injected per record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithContextValue("request_id", requestIDKey{}),
		)

		ctx := context.WithValue(context.Background(), requestIDKey{}, "req-123")
		log.InfoContext(ctx, "with id")

		rec := decodeRecord(t, &buf)
		assert.Equal(t, "req-123", rec["request_id"])

		buf.Reset()
		log.Info("without id")
		rec = decodeRecord(t, &buf)
		_, ok := rec["request_id"]
		assert.False(t, ok)
	})
}
