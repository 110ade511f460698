package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skipgraph/internal/bootstrap"
	"skipgraph/internal/config"
	"skipgraph/internal/ctxutil"
	"skipgraph/internal/domain"
	"skipgraph/internal/logger"
	zapfactory "skipgraph/internal/logger/zap"
	"skipgraph/internal/node"
	"skipgraph/internal/tcpnetwork"
	"skipgraph/internal/telemetry"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	space, err := domain.NewSpace(cfg.SkipGraph.IDBits/8, cfg.SkipGraph.Levels, cfg.SkipGraph.HopLimit)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err.Error()))
		os.Exit(1)
	}
	lgr.Debug("identifier space initialized",
		logger.F("identifierBytes", space.IdentifierBytes),
		logger.F("levels", space.Levels),
		logger.F("hopLimit", space.HopLimit),
	)

	net, err := tcpnetwork.New(cfg.Node.Mode, cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port, tcpnetwork.WithLogger(lgr))
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err.Error()))
		os.Exit(1)
	}
	lgr.Debug("listener bound", logger.F("advertised", net.Advertised().String()))

	var id domain.Identifier
	if cfg.Node.Id == "" {
		id, err = domain.RandomIdentifier(space)
	} else {
		id, err = domain.IdentifierFromHex(space, cfg.Node.Id)
	}
	if err != nil {
		lgr.Error("failed to derive node identifier", logger.F("err", err.Error()))
		os.Exit(1)
	}
	memVec, err := domain.RandomMembershipVector(space)
	if err != nil {
		lgr.Error("failed to generate membership vector", logger.F("err", err.Error()))
		os.Exit(1)
	}
	identity := domain.NewNodeIdentity(id, memVec, net.Advertised())
	lgr = lgr.Named("node").With(logger.FIdentity("self", identity))
	lgr.Info("node initializing")

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "skipgraph-node", id)
	defer shutdownTracer(context.Background())

	n := node.New(identity, space, net,
		node.WithLogger(lgr),
		node.WithRequestTimeout(cfg.SkipGraph.RequestTimeout),
		node.WithPingTimeout(cfg.Repair.PingTimeout),
	)

	if err := net.Start(); err != nil {
		lgr.Error("failed to start listener", logger.F("err", err.Error()))
		os.Exit(1)
	}
	lgr.Debug("listener started")

	var boot bootstrap.Bootstrap
	switch cfg.Bootstrap.Mode {
	case "route53":
		boot, err = bootstrap.NewRoute53Bootstrap(cfg.Bootstrap.Route53)
		if err != nil {
			lgr.Error("failed to initialize route53 bootstrap", logger.F("err", err.Error()))
			_ = net.Stop()
			os.Exit(1)
		}
	case "static":
		boot = bootstrap.NewStaticBootstrap(cfg.Bootstrap.Peers)
	default:
		lgr.Error("unsupported bootstrap mode", logger.F("mode", cfg.Bootstrap.Mode))
		_ = net.Stop()
		os.Exit(1)
	}

	discoverCtx, discoverCancel := ctxutil.NewContext(ctxutil.WithTrace(id), ctxutil.WithTimeout(10*time.Second))
	peers, err := boot.Discover(discoverCtx)
	discoverCancel()
	if err != nil {
		lgr.Error("failed to resolve bootstrap peers", logger.F("err", err.Error()))
		_ = net.Stop()
		os.Exit(1)
	}
	lgr.Info("resolved bootstrap peers", logger.F("count", len(peers)))

	if len(peers) == 0 {
		n.CreateNewOverlay()
		lgr.Info("no bootstrap peers found, founding new overlay")
	} else {
		joinCtx, joinCancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := n.Join(joinCtx, peers[0])
		joinCancel()
		if err != nil {
			lgr.Error("failed to join overlay", logger.F("introducer", peers[0].String()), logger.F("err", err.Error()))
			_ = net.Stop()
			os.Exit(1)
		}
		lgr.Info("joined overlay", logger.F("introducer", peers[0].String()))
	}

	registerCtx, registerCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = boot.Register(registerCtx, identity)
	registerCancel()
	if err != nil {
		lgr.Warn("failed to register with bootstrap backend", logger.F("err", err.Error()))
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := boot.Deregister(ctx, identity); err != nil {
				lgr.Warn("failed to deregister from bootstrap backend", logger.F("err", err.Error()))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	n.StartRepair(ctx, cfg.Repair.Interval)
	lgr.Debug("repair loop started")

	<-ctx.Done()
	stop()
	lgr.Info("shutdown signal received, leaving overlay")

	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := n.Leave(leaveCtx); err != nil {
		lgr.Warn("error during leave", logger.F("err", err.Error()))
	}
	leaveCancel()

	if err := net.Stop(); err != nil {
		lgr.Warn("error stopping listener", logger.F("err", err.Error()))
	}
	lgr.Info("node stopped")
}
