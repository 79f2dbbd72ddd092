package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"lapcompare/compare"
	"lapcompare/config"
	"lapcompare/server"
	"lapcompare/store"
)

var (
	configPath string
	addr       string
	debug      bool
)

func init() {
	flag.StringVar(&configPath, "c", "", "config path (defaults are used when empty)")
	flag.StringVar(&addr, "addr", "", "listen address, overrides the config")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logger.WithError(err).Fatalf("Could not read config at %s", configPath)
		}
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics := server.NewMetrics(reg)

	engine, err := compare.New(cfg, compare.WithLogger(logger), compare.WithStageObserver(metrics.ObserveStage))
	if err != nil {
		logger.WithError(err).Fatal("Could not initialise comparison engine")
	}

	st, err := store.Open(cfg.Server.DBPath)
	if err != nil {
		logger.WithError(err).Fatal("Could not open result store")
	}
	defer st.Close()

	srv := server.New(engine, st, cfg.Server, metrics, logger)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Could not stop server")
		}
	}()

	if err := srv.Listen(); err != nil {
		logger.WithError(err).Error("could not run server")
		return
	}

	logger.Infof("Server stopped. Exiting")
}
