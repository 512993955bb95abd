package main

import (
	"embed"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"dbdeck/internal/app"
	"dbdeck/internal/config"
	"dbdeck/internal/executor"
	"dbdeck/internal/session"
	"dbdeck/internal/storage"
	"dbdeck/internal/tunnel"
)

var Version string = "0.1.0"

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	dbPath, err := config.StateDBPath()
	if err != nil {
		log.Fatal(err)
	}
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal(err)
	}
	if err := storage.MigrateSchema(db); err != nil {
		log.Fatal(err)
	}
	repo := storage.NewRepo(db)

	tunnels := tunnel.NewRegistry()
	service := executor.NewService(tunnels, storage.Keyring{})

	store := session.NewStore(session.Options{
		Executor:  service,
		Persister: repo,
		Dial:      service.EnsureTunnel,
		SaveDelay: time.Duration(cfg.General.SaveDebounceMs) * time.Millisecond,
		Logger:    logger,
	})

	a := app.NewApp(app.Options{
		Store:              store,
		Service:            service,
		Repo:               repo,
		Logger:             logger,
		ReconnectOnRestore: cfg.General.ReconnectOnRestore,
		Version:            Version,
	})

	err = wails.Run(&options.App{
		Title:  "DBDeck",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 0x1e, G: 0x1e, B: 0x2e, A: 0xff},
		OnStartup:        a.Startup,
		OnShutdown:       a.Shutdown,
		Bind: []interface{}{
			a,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
