package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	appconfig "github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/config"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/api"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/channel"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/feed"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/homebroker"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/metrics"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/internal/store"
	"github.com/jorgeemmanuelgonzalez-site/api-mercado-pyhomebroker/logger"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config/config.yml", "path to configuration file")
	flag.Parse()

	log := logger.GetLogger().WithComponent("main")

	cfg, err := appconfig.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if err := logger.GetLogger().Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	log.WithFields(logger.Fields{
		"service": cfg.Service.Name,
		"version": cfg.Service.Version,
	}).Info("starting")

	if cfg.Metrics.Prometheus {
		metrics.Init()
	}
	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}

	channels := channel.NewChannels(cfg.Channels.QuoteBuffer, cfg.Channels.ErrorBuffer)
	quotes := store.New(cfg.Prefixes.Options, cfg.Prefixes.Stocks)
	dialer := homebroker.NewDialer(cfg.HomeBroker, channels)

	service := feed.NewService(cfg, quotes, channels, dialer)
	service.Start()

	var server *api.Server
	if cfg.Server.Enabled {
		server = api.NewServer(cfg, service)
		go func() {
			if err := server.Run(); err != nil {
				log.WithError(err).Error("http server stopped")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("shutting down")

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("http shutdown incomplete")
		}
		cancel()
	}

	service.Stop()
	channels.Close()
	log.Info("stopped")
}
