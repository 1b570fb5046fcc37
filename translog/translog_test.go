package translog_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/drewfead/transcode/translog"
)

func TestUnit_ConsoleHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(translog.NewConsoleHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestUnit_ConsoleHandler_LineShape(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(translog.NewConsoleHandler(&buf, nil))

	logger.Info("translated request message", "route", "/v1/shelves", "path", "a b")

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "translated request message")
	assert.Contains(t, out, "route=/v1/shelves")
	assert.Contains(t, out, `path="a b"`)
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestUnit_ConsoleHandler_PayloadSizes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(translog.NewConsoleHandler(&buf, nil))

	logger.Info("translated", "bytes", 512)
	logger.Info("translated", "bytes", 5*1024*1024)
	logger.Info("received", "frame", 2048)
	logger.Info("counted", "elements", 2048)

	out := buf.String()
	assert.Contains(t, out, "bytes=512B")
	assert.Contains(t, out, "bytes=5.0MiB")
	assert.Contains(t, out, "frame=2.0KiB")
	// Non-size attributes keep their numeric form.
	assert.Contains(t, out, "elements=2048")
}

func TestUnit_ConsoleHandler_GRPCValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(translog.NewConsoleHandler(&buf, nil))

	logger.Warn("request failed",
		"code", codes.InvalidArgument,
		"status", status.New(codes.OutOfRange, "value too large"))

	out := buf.String()
	assert.Contains(t, out, "code=InvalidArgument")
	assert.Contains(t, out, `status=OutOfRange "value too large"`)
}

func TestUnit_ConsoleHandler_GroupsAndBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(translog.NewConsoleHandler(&buf, nil)).
		With("backend", "localhost:9090").
		WithGroup("grpc")

	logger.Info("invoked", "method", "/bookstore.Bookstore/CreateShelf")

	out := buf.String()
	assert.Contains(t, out, "backend=localhost:9090")
	assert.Contains(t, out, "grpc.method=/bookstore.Bookstore/CreateShelf")
}

func TestUnit_Default_PicksHandlerByMode(t *testing.T) {
	server := translog.Default(true, slog.LevelInfo)
	require.NotNil(t, server)
	assert.False(t, server.Enabled(t.Context(), slog.LevelDebug))

	console := translog.Default(false, slog.LevelDebug)
	require.NotNil(t, console)
	assert.True(t, console.Enabled(t.Context(), slog.LevelDebug))
}

func TestUnit_ParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, translog.ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, translog.ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, translog.ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, translog.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, translog.ParseLevel("error"))
	assert.Greater(t, int(translog.ParseLevel("none")), int(slog.LevelError))
}
