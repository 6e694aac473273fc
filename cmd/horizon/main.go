// Copyright (c) 2025 The Horizon Ledger developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/horizonledger/horizon/api"
	"github.com/horizonledger/horizon/eventdb"
	"github.com/horizonledger/horizon/genesis"
	"github.com/horizonledger/horizon/ledger"
	"github.com/horizonledger/horizon/log"
	"github.com/horizonledger/horizon/lvldb"
	"github.com/horizonledger/horizon/metrics"
	"github.com/horizonledger/horizon/state"
)

var (
	version   string
	gitCommit string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%.8s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "horizon",
		Usage:     "Staking and collateral-provisioning ledger",
		Copyright: "2025 The Horizon Ledger developers",
		Flags: []cli.Flag{
			dataDirFlag,
			memFlag,
			genesisFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
			metricsAddrFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}

	db, edb, err := openDatabases(ctx)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing databases...")
		edb.Close()
		db.Close()
	}()

	st := state.New(db)
	if err := initState(db, st, gene); err != nil {
		return err
	}
	ldgr := ledger.New(st, ledger.WithEventSink(edb))

	handler := api.New(ldgr, edb, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	return serve(ctx, handler)
}

// initState applies the genesis spec on first run. A marker key in the
// meta bucket keeps reruns from reapplying it.
func initState(db *lvldb.LevelDB, st *state.State, gene *genesis.Spec) error {
	meta := metaBucket.NewStore(db)
	applied, err := meta.Has(genesisKey)
	if err != nil {
		return err
	}
	if applied {
		logger.Info("state already initialized")
		return nil
	}
	if err := gene.Build(st); err != nil {
		return err
	}
	stage, err := st.Stage()
	if err != nil {
		return err
	}
	if err := stage.Commit(); err != nil {
		return err
	}
	if err := meta.Put(genesisKey, []byte(gene.Name)); err != nil {
		return err
	}
	logger.Info("genesis applied", "name", gene.Name)
	return nil
}

func openDatabases(ctx *cli.Context) (*lvldb.LevelDB, *eventdb.EventDB, error) {
	if ctx.Bool(memFlag.Name) {
		db, err := lvldb.NewMem()
		if err != nil {
			return nil, nil, err
		}
		edb, err := eventdb.NewMem()
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return db, edb, nil
	}

	dataDir := ctx.String(dataDirFlag.Name)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, nil, err
	}
	db, err := lvldb.New(filepath.Join(dataDir, "main.db"), lvldb.Options{
		CacheSize:              128,
		OpenFilesCacheCapacity: 512,
	})
	if err != nil {
		return nil, nil, err
	}
	edb, err := eventdb.New(filepath.Join(dataDir, "events.db"))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, edb, nil
}

func selectGenesis(ctx *cli.Context) (*genesis.Spec, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		logger.Info("using devnet genesis")
		return genesis.Devnet(), nil
	}
	return genesis.LoadFile(path)
}

// serve runs the API (and metrics) listeners until interrupted.
func serve(ctx *cli.Context, handler http.HandlerFunc) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(sigCtx)

	apiSrv := &http.Server{Addr: ctx.String(apiAddrFlag.Name), Handler: handler}
	group.Go(func() error {
		logger.Info("API service started", "addr", apiSrv.Addr)
		if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsSrv *http.Server
	if ctx.Bool(enableMetricsFlag.Name) {
		metricsSrv = &http.Server{
			Addr:    ctx.String(metricsAddrFlag.Name),
			Handler: metrics.HTTPHandler(),
		}
		group.Go(func() error {
			logger.Info("metrics service started", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx) //nolint:errcheck
		}
		return apiSrv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
