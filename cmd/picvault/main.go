package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/picvault/picvault/internal/activity"
	"github.com/picvault/picvault/internal/auth"
	"github.com/picvault/picvault/internal/config"
	"github.com/picvault/picvault/internal/gallery"
	"github.com/picvault/picvault/internal/prefs"
	"github.com/picvault/picvault/internal/remote"
	"github.com/picvault/picvault/internal/thumbnails"
	"github.com/picvault/picvault/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	level, err := log.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	store, err := prefs.Open(cfg.Preferences.Path)
	if err != nil {
		log.Fatalf("Failed to open preference store: %v", err)
	}
	defer store.Close()

	client := remote.New(cfg.Remote.BaseURL, cfg.Remote.RequestsPerSecond, cfg.Remote.Burst)
	session := auth.NewSession(client)

	ctx := context.Background()
	if cfg.Auth.Identity != "" {
		if err := session.Login(ctx, cfg.Auth.Identity, cfg.Auth.Password); err != nil {
			log.Warnf("Startup sign-in failed, continuing signed out: %v", err)
		}
	}

	tracker := activity.NewTracker()
	browser := gallery.NewBrowser(client, store, session, tracker)
	catalog := gallery.NewCatalog(client, session)
	toggler := gallery.NewLikeToggler(client, session, tracker)

	var thumbnailGen *thumbnails.Generator
	if cfg.Thumbnails.Enabled {
		thumbnailGen = thumbnails.NewGenerator(
			cfg.Thumbnails.MaxWidth,
			cfg.Thumbnails.MaxHeight,
			cfg.Thumbnails.Quality,
			cfg.Thumbnails.Directory,
			cfg.Thumbnails.VideoMethod,
			store,
		)
	}

	catalog.Load(ctx)

	server := web.New(cfg, store, session, browser, catalog, toggler, tracker, thumbnailGen)
	if err := server.Start(); err != nil {
		log.Fatalf("Web server failed: %v", err)
	}
}
