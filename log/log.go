// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log provides the process-wide structured logger.
// It wraps log/slog with handlers tuned for terminal and machine output.
package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// Logger is the logging handle used throughout the ledger.
type Logger = *slog.Logger

var rootHandler atomic.Pointer[slog.Handler]

func init() {
	h := slog.Handler(DiscardHandler())
	rootHandler.Store(&h)
}

// SetRootHandler replaces the handler behind the root logger.
// Loggers previously derived via WithContext pick up the new handler.
func SetRootHandler(h slog.Handler) {
	rootHandler.Store(&h)
}

// Root returns the root logger.
func Root() Logger {
	return slog.New(&swapHandler{})
}

// WithContext returns a logger carrying the given key/value context.
func WithContext(kv ...any) Logger {
	return Root().With(kv...)
}

// New returns a terminal logger writing to stderr, for tooling that
// wants output before any configuration has happened.
func New() Logger {
	return slog.New(NewTerminalHandler(os.Stderr, false))
}

// swapHandler delegates to the current root handler at call time, so
// handler replacement applies to already-derived loggers.
type swapHandler struct {
	attrs []slog.Attr
}

func (h *swapHandler) current() slog.Handler {
	cur := *rootHandler.Load()
	if len(h.attrs) > 0 {
		cur = cur.WithAttrs(h.attrs)
	}
	return cur
}

func (h *swapHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.current().Handle(ctx, r)
}

func (h *swapHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return (*rootHandler.Load()).Enabled(ctx, lvl)
}

func (h *swapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &swapHandler{attrs: merged}
}

func (h *swapHandler) WithGroup(name string) slog.Handler {
	return h
}
