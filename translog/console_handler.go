package translog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ConsoleHandler is a slog.Handler for watching a transcoding proxy from a
// terminal. Each record becomes one line: a short timestamp, a colored
// three-letter level tag, the message, then attributes. Attribute rendering
// knows the shapes this codebase logs: gRPC codes and statuses print by
// name, and payload-size attributes (bytes, size, frame) print in human
// units so a 5 MiB request body does not read as a raw byte count.
//
// Thread safety: Handle assembles the whole line locally and issues a
// single Write, so no mutex is needed. All fields are immutable after
// construction.
type ConsoleHandler struct {
	w            io.Writer
	level        slog.Leveler
	prefix       string // open group path, "grpc." style
	preformatted string // attrs bound via WithAttrs, rendered once
}

// NewConsoleHandler creates a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{w: w}
	if opts != nil {
		h.level = opts.Level
	}
	if h.level == nil {
		h.level = slog.LevelInfo
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(r.Time.Format("15:04:05.000"))
		b.WriteByte(' ')
	}
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.preformatted)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs returns a handler with the attributes rendered into every line.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.preformatted)
	for _, a := range attrs {
		appendAttr(&b, h.prefix, a)
	}
	return &ConsoleHandler{w: h.w, level: h.level, prefix: h.prefix, preformatted: b.String()}
}

// WithGroup returns a handler that prefixes subsequent attribute keys with
// the group name, dot separated.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ConsoleHandler{w: h.w, level: h.level, prefix: h.prefix + name + ".", preformatted: h.preformatted}
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31mERR\033[0m"
	case level >= slog.LevelWarn:
		return "\033[33mWRN\033[0m"
	case level >= slog.LevelInfo:
		return "\033[32mINF\033[0m"
	default:
		return "\033[90mDBG\033[0m"
	}
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range v.Group() {
			appendAttr(b, sub, ga)
		}
		return
	}
	if a.Equal(slog.Attr{}) {
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Key, v))
}

// formatValue renders one attribute value, applying the domain-specific
// forms before falling back to slog's default rendering.
func formatValue(key string, v slog.Value) string {
	if v.Kind() == slog.KindAny {
		switch av := v.Any().(type) {
		case codes.Code:
			return av.String()
		case *status.Status:
			return av.Code().String() + " " + quoteIfNeeded(av.Message())
		case error:
			return quoteIfNeeded(av.Error())
		}
	}
	if isSizeKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			return humanBytes(v.Int64())
		case slog.KindUint64:
			return humanBytes(int64(v.Uint64()))
		}
	}
	if v.Kind() == slog.KindString {
		return quoteIfNeeded(v.String())
	}
	return v.String()
}

// isSizeKey reports whether the attribute counts payload bytes; the request
// and response translators log these as "bytes", and "size" and "frame"
// are rendered the same way.
func isSizeKey(key string) bool {
	switch key {
	case "bytes", "size", "frame":
		return true
	}
	return false
}

func humanBytes(n int64) string {
	switch {
	case n < 0:
		return strconv.FormatInt(n, 10)
	case n < 1<<10:
		return strconv.FormatInt(n, 10) + "B"
	case n < 1<<20:
		return fmt.Sprintf("%.1fKiB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1fMiB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1fGiB", float64(n)/(1<<30))
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
