package commands

import (
	"log/slog"
	"os"
	"time"

	"orionstore-backend/lib/configutil"
	"orionstore-backend/lib/restyutil"
	"orionstore-backend/lib/scrapers/fdroid"
	"orionstore-backend/lib/serviceutil"
	"orionstore-backend/services/store"
)

type Config struct {
	Catalog        string `json:"catalog"`
	Tracked        string `json:"tracked"`
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

func newService() store.Service {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "path", *configPath)
	} else if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	if cfg.Catalog == "" {
		cfg.Catalog = "apps.json"
	}
	if cfg.Tracked == "" {
		cfg.Tracked = "tracked_apps.txt"
	}

	client, err := fdroid.NewClient(fdroid.ClientOptions{
		BaseUrl: cfg.BaseUrl,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize fdroid client", err)
	}
	if *verbose {
		client.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/fdroid"))
	}

	return store.NewService(store.Options{
		Store:       store.Store{Path: cfg.Catalog},
		Extractor:   client,
		TrackedPath: cfg.Tracked,
	})
}
