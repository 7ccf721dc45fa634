// Command ghostnoded wires the header-processing core of spec.md §1-§6
// into a runnable process: it opens the badger-backed store, constructs
// every per-level manager and the address directory, starts the net
// adapter and connection manager, starts the header processor's worker
// pool, and serves the processing counters as Prometheus metrics,
// exactly the shape SPEC_FULL.md's domain stack describes for this
// binary.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dagchain/ghostnode/addressmanager"
	"github.com/dagchain/ghostnode/connmanager"
	"github.com/dagchain/ghostnode/dagconfig"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/blockwindowcachestore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/daastore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/depthstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersselectedtipstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/headersstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/pruningstore"
	"github.com/dagchain/ghostnode/domain/consensus/datastructures/statusesstore"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/blocktask"
	"github.com/dagchain/ghostnode/domain/consensus/pipeline/headerprocessor"
	"github.com/dagchain/ghostnode/domain/consensus/processes/processingcounters"
	"github.com/dagchain/ghostnode/infrastructure/db/badgerdb"
	"github.com/dagchain/ghostnode/infrastructure/logger"
	"github.com/dagchain/ghostnode/infrastructure/network/netadapter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var log = logger.NewLogger("GNOD")

func main() {
	if err := run(); err != nil {
		log.Criticalf("fatal: %s", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}

	if err := os.MkdirAll(cfg.dataDir(), 0o755); err != nil {
		return errors.Wrap(err, "creating data directory")
	}
	if err := logger.SetLogFile(cfg.logFile(), defaultMaxLogRolls); err != nil {
		return errors.Wrap(err, "opening log file")
	}
	logger.SetLogLevels(cfg.DebugLevel)
	defer logger.Close()

	db, err := badgerdb.Open(cfg.dataDir())
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()

	params := dagconfig.MainnetParams()

	addresses, err := addressmanager.New(db, params)
	if err != nil {
		return errors.Wrap(err, "constructing address directory")
	}
	log.Infof("address directory ready with %d known peer(s)", len(addresses.GetAllAddresses()))

	netAdapter := netadapter.New()
	if err := netAdapter.Start(cfg.Listen); err != nil {
		return errors.Wrap(err, "starting net adapter")
	}
	defer netAdapter.Stop()

	connManager := connmanager.New(netAdapter, addresses, cfg.TargetOutgoing)
	connManager.Start()
	defer connManager.Stop()

	receiver := make(chan blocktask.Task, 256)
	bodySender := make(chan blocktask.Task, 256)
	counters := processingcounters.New()

	processor := headerprocessor.New(
		params,
		db,
		headersstore.New(),
		statusesstore.New(),
		daastore.New(),
		depthstore.New(),
		pruningstore.New(),
		headersselectedtipstore.New(),
		blockwindowcachestore.New(),
		blockwindowcachestore.New(),
		counters,
		receiver,
		bodySender,
		cfg.Workers,
	)

	if err := processor.ProcessOriginIfNeeded(); err != nil {
		return errors.Wrap(err, "bootstrapping ORIGIN")
	}
	if err := processor.ProcessGenesisIfNeeded(); err != nil {
		return errors.Wrap(err, "bootstrapping genesis")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(processingcounters.NewCollector(counters))
	go serveMetrics(cfg.MetricsListen, registry)

	go processor.Run()
	go drainBodyChannel(bodySender)

	waitForShutdownSignal()
	log.Infof("shutdown requested, draining in-flight headers")
	receiver <- blocktask.ExitTask()
	close(receiver)

	return nil
}

// drainBodyChannel stands in for the body-processing stage this core
// forwards into (a Non-goal of this binary): it just logs what the
// header processor hands it and stops once Exit is forwarded.
func drainBodyChannel(bodySender <-chan blocktask.Task) {
	for task := range bodySender {
		if task.Kind == blocktask.Exit {
			log.Infof("body stage received exit, stopping")
			return
		}
		log.Debugf("body stage received a block for further processing")
	}
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	log.Infof("serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Errorf("metrics server stopped: %s", err)
	}
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
