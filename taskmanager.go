package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"testing"

	"github.com/flabs/taskmanager/api"
	"github.com/flabs/taskmanager/bus"
	busredis "github.com/flabs/taskmanager/bus/redis"
	"github.com/flabs/taskmanager/cluster/orchestrator"
	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/metrics"
	"github.com/flabs/taskmanager/schedule"
	"github.com/flabs/taskmanager/types"
	"github.com/flabs/taskmanager/utils"
	"github.com/flabs/taskmanager/version"

	"github.com/go-redis/redis/v8"
	zerolog "github.com/rs/zerolog/log"
	"github.com/sanity-io/litter"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

var (
	configPath      string
	embeddedStorage bool
)

func newBus(config types.Config) (*bus.Bus, error) {
	pool, err := utils.NewBlockingPool(config.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	opts := []bus.Option{bus.WithRequestTimeout(config.Bus.RequestTimeout)}
	if config.Bus.Node != "" {
		opts = append(opts, bus.WithNode(config.Bus.Node))
	}
	if config.Bus.Cluster {
		rcli := redis.NewClient(&redis.Options{
			Addr: config.Redis.Addr,
			DB:   config.Redis.DB,
		})
		opts = append(opts, bus.WithBridge(busredis.New(rcli, config.Bus.ChannelPrefix)))
	}
	return bus.New(pool, opts...), nil
}

func serve(c *cli.Context) error {
	config, err := utils.LoadConfig(configPath)
	if err != nil {
		zerolog.Fatal().Err(err).Send()
	}

	if err := log.SetupLog(c.Context, &config.Log, config.SentryDSN); err != nil {
		zerolog.Fatal().Err(err).Send()
	}
	defer log.SentryDefer()
	logger := log.WithFunc("main")
	logger.Debugf(c.Context, "config %s", litter.Sdump(config))

	if err := metrics.InitMetrics(config); err != nil {
		logger.Error(c.Context, err)
		return err
	}

	// wait for unix signals and try to stop gracefully
	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer cancel()

	b, err := newBus(config)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}
	defer b.Close()
	utils.SentryGo(func() {
		if err := b.Start(ctx); err != nil {
			logger.Error(ctx, err, "bus bridge stopped")
		}
	})

	var t *testing.T
	if embeddedStorage {
		t = &testing.T{}
	}
	o, err := orchestrator.New(ctx, config, b, t)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}
	defer o.Finalizer()
	if err := o.Start(ctx); err != nil {
		logger.Error(ctx, err)
		return err
	}
	o.DisasterRecover(ctx)

	if config.SpecFile != "" {
		n, err := o.LoadSpecFile(ctx, config.SpecFile)
		if err != nil {
			logger.Error(ctx, err, "load spec file failed")
			return err
		}
		logger.Infof(ctx, "%d task specs loaded from %s", n, config.SpecFile)
	}

	scheduler, err := schedule.New(o.SubmitEvent)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}
	for _, sc := range config.Schedules {
		if err := scheduler.Add(ctx, sc); err != nil {
			logger.Error(ctx, err, "bad schedule")
			return err
		}
	}
	if config.PurgeInterval > 0 {
		purge := func(ctx context.Context) error {
			_, err := o.PurgeHierarchies(ctx)
			return err
		}
		if err := scheduler.Every(ctx, "purge-hierarchies", config.PurgeInterval, purge); err != nil {
			logger.Error(ctx, err, "bad purge interval")
			return err
		}
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error(ctx, err, "scheduler shutdown failed")
		}
	}()

	server, err := api.New(o, config)
	if err != nil {
		logger.Error(ctx, err)
		return err
	}
	logger.Infof(ctx, "taskmanager %s started on %s", o.GetIdentifier(), config.Bind)
	if err := server.Run(ctx); err != nil {
		logger.Error(ctx, err, "API server failed")
		return err
	}
	logger.Info(ctx, "taskmanager gracefully stopped")
	return nil
}

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Print(version.String())
	}

	app := cli.NewApp()
	app.Name = version.NAME
	app.Usage = "Run the task manager"
	app.Version = version.VERSION
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Value:       "/etc/taskmanager/taskmanager.yaml",
			Usage:       "config file path for taskmanager, in yaml",
			Destination: &configPath,
			EnvVars:     []string{"TASKMANAGER_CONFIG_PATH"},
		},
		&cli.BoolFlag{
			Name:        "embedded-storage",
			Usage:       "active embedded storage",
			Destination: &embeddedStorage,
		},
	}
	app.Action = serve
	_ = app.Run(os.Args)
}
