// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/horizonledger/horizon/kv"
	"github.com/horizonledger/horizon/log"
)

var (
	metaBucket = kv.Bucket("m")
	genesisKey = []byte("genesis")
)

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".horizon")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	level := log.LevelInfo
	switch verbosity := ctx.Int(verbosityFlag.Name); {
	case verbosity <= 1:
		level = log.LevelError
	case verbosity == 2:
		level = log.LevelWarn
	case verbosity == 3:
		level = log.LevelInfo
	case verbosity == 4:
		level = log.LevelDebug
	default:
		level = log.LevelTrace
	}
	lvl := new(slog.LevelVar)
	lvl.Set(level)

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, lvl)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)
	}
	log.SetRootHandler(handler)
}
