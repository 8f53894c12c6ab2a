package app

import (
	"errors"
	"strings"

	"notibridge/internal/config"
	"notibridge/internal/inbound"
	"notibridge/internal/notifier"
	"notibridge/internal/server"
	"notibridge/internal/storage"
)

// Mapping helpers translate the serialized config (duration strings) into
// the typed component configs.

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	if strings.TrimSpace(cfg.Storage.Path) == "" && !strings.EqualFold(strings.TrimSpace(cfg.Storage.Driver), "memory") {
		return storage.Config{}, errors.New("storage.path is required")
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	retryBase, err := config.ParseDurationField("notifier.retry_base", n.RetryBase)
	if err != nil {
		return notifier.Config{}, err
	}
	retryMaxDelay, err := config.ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay)
	if err != nil {
		return notifier.Config{}, err
	}
	sendTimeout, err := config.ParseDurationField("notifier.send_timeout", n.SendTimeout)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Workers:       n.Workers,
		QueueSize:     n.QueueSize,
		RatePerSec:    n.RatePerSec,
		RetryMax:      n.RetryMax,
		RetryBase:     retryBase,
		RetryMaxDelay: retryMaxDelay,
		SendTimeout:   sendTimeout,
	}, nil
}

func mapInboundConfig(cfg *config.Config) (inbound.Config, error) {
	window, err := config.ParseDurationField("inbound.redelivery_window", cfg.Inbound.RedeliveryWindow)
	if err != nil {
		return inbound.Config{}, err
	}
	return inbound.Config{RedeliveryWindow: window}, nil
}

func mapServerConfig(cfg *config.Config) (server.Config, error) {
	readTimeout, err := config.ParseDurationField("server.read_timeout", cfg.Server.ReadTimeout)
	if err != nil {
		return server.Config{}, err
	}
	return server.Config{
		Address:     cfg.Server.Address,
		ReadTimeout: readTimeout,
	}, nil
}
