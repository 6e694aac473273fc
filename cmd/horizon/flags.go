// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for ledger databases",
	}
	memFlag = cli.BoolFlag{
		Name:  "mem",
		Usage: "keep everything in memory, nothing persisted",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path of the yaml genesis spec (omit for the built-in devnet)",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8669",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (1-5: error, warn, info, debug, trace)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "emit logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enable prometheus metrics",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
)
