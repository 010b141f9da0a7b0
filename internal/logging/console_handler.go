package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiDim    = "\x1b[2m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// consoleHandler renders human-oriented single-line log records:
//
//	2024-05-01T10:32:07Z INFO  [component] message key=value
type consoleHandler struct {
	mu     sync.Mutex
	writer io.Writer
	level  *slog.LevelVar
	color  bool
	attrs  []slog.Attr
	groups []string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, color bool) slog.Handler {
	return &consoleHandler{writer: w, level: lvl, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	attrs := make([]slog.Attr, 0, record.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)
		return true
	})

	var component string
	filtered := attrs[:0]
	for _, attr := range attrs {
		if attr.Key == FieldComponent && component == "" {
			component = attr.Value.String()
			continue
		}
		filtered = append(filtered, attr)
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(filtered)*24)

	buf.WriteString(timestamp.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	h.writeLevel(&buf, record.Level)
	if component != "" {
		buf.WriteByte(' ')
		h.writeColored(&buf, ansiCyan, "["+component+"]")
	}
	buf.WriteByte(' ')
	buf.WriteString(record.Message)
	for _, attr := range filtered {
		buf.WriteByte(' ')
		h.writeColored(&buf, ansiDim, prefixedKey(h.groups, attr.Key)+"=")
		buf.WriteString(formatValue(attr.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	return &consoleHandler{
		writer: h.writer,
		level:  h.level,
		color:  h.color,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *consoleHandler) writeLevel(buf *bytes.Buffer, level slog.Level) {
	label := "INFO "
	color := ansiBlue
	switch {
	case level >= slog.LevelError:
		label = "ERROR"
		color = ansiRed
	case level >= slog.LevelWarn:
		label = "WARN "
		color = ansiYellow
	case level < slog.LevelInfo:
		label = "DEBUG"
		color = ansiDim
	}
	h.writeColored(buf, color, label)
}

func (h *consoleHandler) writeColored(buf *bytes.Buffer, color, text string) {
	if h.color {
		buf.WriteString(color)
		buf.WriteString(text)
		buf.WriteString(ansiReset)
		return
	}
	buf.WriteString(text)
}

func prefixedKey(groups []string, key string) string {
	if len(groups) == 0 {
		return key
	}
	out := ""
	for _, group := range groups {
		out += group + "."
	}
	return out + key
}

func formatValue(value slog.Value) string {
	value = value.Resolve()
	switch value.Kind() {
	case slog.KindString:
		text := value.String()
		if needsQuoting(text) {
			return strconv.Quote(text)
		}
		return text
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339)
	case slog.KindDuration:
		return value.Duration().String()
	default:
		text := fmt.Sprintf("%v", value.Any())
		if needsQuoting(text) {
			return strconv.Quote(text)
		}
		return text
	}
}

func needsQuoting(text string) bool {
	if text == "" {
		return true
	}
	for _, r := range text {
		if r == ' ' || r == '"' || r == '=' || r < 0x20 {
			return true
		}
	}
	return false
}
