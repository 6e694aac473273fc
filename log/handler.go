// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

const timeFormat = "2006-01-02T15:04:05-0700"

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// LevelString returns a 4-char name for terminal output.
func LevelString(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRCE"
	case LevelDebug:
		return "DBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "EROR"
	default:
		return "UNKN"
	}
}

type discardHandler struct{}

// DiscardHandler returns a no-op handler.
func DiscardHandler() slog.Handler {
	return &discardHandler{}
}

func (h *discardHandler) Handle(_ context.Context, _ slog.Record) error { return nil }
func (h *discardHandler) Enabled(_ context.Context, _ slog.Level) bool  { return false }
func (h *discardHandler) WithGroup(_ string) slog.Handler               { return &discardHandler{} }
func (h *discardHandler) WithAttrs(_ []slog.Attr) slog.Handler          { return &discardHandler{} }

// TerminalHandler formats log records for human readability on a
// terminal, with optional color-coded level output.
//
//	[LEVEL] [TIME] MESSAGE key=value key=value ...
type TerminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	lvl      *slog.LevelVar
	useColor bool
	attrs    []slog.Attr

	buf []byte
}

// NewTerminalHandler returns a terminal handler printing all levels.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	var level slog.LevelVar
	level.Set(LevelTrace)
	return NewTerminalHandlerWithLevel(wr, &level, useColor)
}

// NewTerminalHandlerWithLevel returns the same handler as
// NewTerminalHandler but only outputs records at or above the given level.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl *slog.LevelVar, useColor bool) *TerminalHandler {
	return &TerminalHandler{
		wr:       wr,
		lvl:      lvl,
		useColor: useColor,
	}
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf := h.format(h.buf[:0], r)
	h.wr.Write(buf)
	h.buf = buf[:0]
	return nil
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl.Level()
}

func (h *TerminalHandler) WithGroup(_ string) slog.Handler {
	panic("not implemented")
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TerminalHandler{
		wr:       h.wr,
		lvl:      h.lvl,
		useColor: h.useColor,
		attrs:    append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

func (h *TerminalHandler) format(buf []byte, r slog.Record) []byte {
	lvl := LevelString(r.Level)
	if h.useColor {
		color := "0"
		switch r.Level {
		case LevelError:
			color = "31"
		case LevelWarn:
			color = "33"
		case LevelInfo:
			color = "32"
		case LevelDebug, LevelTrace:
			color = "36"
		}
		buf = fmt.Appendf(buf, "\x1b[%sm%s\x1b[0m", color, lvl)
	} else {
		buf = append(buf, lvl...)
	}
	buf = fmt.Appendf(buf, "[%s] %s", r.Time.Format("01-02|15:04:05.000"), r.Message)
	for _, attr := range h.attrs {
		buf = appendAttr(buf, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		buf = appendAttr(buf, attr)
		return true
	})
	return append(buf, '\n')
}

func appendAttr(buf []byte, attr slog.Attr) []byte {
	buf = append(buf, ' ')
	buf = append(buf, attr.Key...)
	buf = append(buf, '=')
	return append(buf, attrValue(attr.Value)...)
}

func attrValue(v slog.Value) string {
	switch t := v.Any().(type) {
	case time.Time:
		return t.Format(timeFormat)
	case *big.Int:
		if t == nil {
			return "<nil>"
		}
		return t.String()
	case *uint256.Int:
		if t == nil {
			return "<nil>"
		}
		return t.Dec()
	case error:
		return strconv.Quote(t.Error())
	case fmt.Stringer:
		if t == nil || (reflect.ValueOf(t).Kind() == reflect.Pointer && reflect.ValueOf(t).IsNil()) {
			return "<nil>"
		}
		return t.String()
	}
	s := v.String()
	for _, c := range s {
		if c == ' ' || c == '"' || c == '=' {
			return strconv.Quote(s)
		}
	}
	return s
}

type leveler struct{ minLevel *slog.LevelVar }

func (l *leveler) Level() slog.Level {
	return l.minLevel.Level()
}

// JSONHandler returns a handler printing records in JSON format.
func JSONHandler(wr io.Writer) slog.Handler {
	var level slog.LevelVar
	level.Set(LevelTrace)
	return JSONHandlerWithLevel(wr, &level)
}

// JSONHandlerWithLevel is JSONHandler bounded at the given level.
func JSONHandlerWithLevel(wr io.Writer, level *slog.LevelVar) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{
		ReplaceAttr: builtinReplaceJSON,
		Level:       &leveler{level},
	})
}

func builtinReplaceJSON(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			return slog.Attr{Key: "t", Value: attr.Value}
		}
	case slog.LevelKey:
		if l, ok := attr.Value.Any().(slog.Level); ok {
			return slog.Any("lvl", LevelString(l))
		}
	}
	switch v := attr.Value.Any().(type) {
	case *big.Int:
		if v == nil {
			attr.Value = slog.StringValue("<nil>")
		} else {
			attr.Value = slog.StringValue(v.String())
		}
	case *uint256.Int:
		if v == nil {
			attr.Value = slog.StringValue("<nil>")
		} else {
			attr.Value = slog.StringValue(v.Dec())
		}
	case fmt.Stringer:
		if v == nil || (reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil()) {
			attr.Value = slog.StringValue("<nil>")
		} else {
			attr.Value = slog.StringValue(v.String())
		}
	}
	return attr
}
