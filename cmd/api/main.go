package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mdolezal/isdocsync/internal/config"
	"github.com/mdolezal/isdocsync/internal/database"
	"github.com/mdolezal/isdocsync/internal/fakturoid"
	fakturoidStore "github.com/mdolezal/isdocsync/internal/fakturoid/store"
	fakturoidSync "github.com/mdolezal/isdocsync/internal/fakturoid/sync"
	isdocsyncHttp "github.com/mdolezal/isdocsync/internal/http"
	connectionHandler "github.com/mdolezal/isdocsync/internal/http/connection"
	invoiceHandler "github.com/mdolezal/isdocsync/internal/http/invoice"
	uploadHandler "github.com/mdolezal/isdocsync/internal/http/upload"
	"github.com/mdolezal/isdocsync/internal/importer"
	"github.com/mdolezal/isdocsync/internal/invoice"
	invoiceStore "github.com/mdolezal/isdocsync/internal/invoice/store"
	mirrorStore "github.com/mdolezal/isdocsync/internal/staging/mirror/store"
	"github.com/mdolezal/isdocsync/internal/staging/parsed"
	parsedStore "github.com/mdolezal/isdocsync/internal/staging/parsed/store"
	"github.com/mdolezal/isdocsync/internal/staging/processing"
	processingStore "github.com/mdolezal/isdocsync/internal/staging/processing/store"
	"github.com/mdolezal/isdocsync/internal/storage"
)

func main() {
	// Missing .env is fine, the environment may carry everything already.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	blobs, err := storage.New(cfg.Storage.ConnectionString, cfg.Storage.Container)
	if err != nil {
		slog.Error("failed to create storage client", "error", err)
		os.Exit(1)
	}

	if err := blobs.EnsureContainer(context.Background()); err != nil {
		slog.Error("failed to ensure storage container", "error", err)
		os.Exit(1)
	}

	var (
		connections = fakturoidStore.New(db)
		mirrors     = mirrorStore.New(db)
		uploads     = parsedStore.New(db)
		attempts    = processingStore.New(db)
		invoices    = invoiceStore.New(db)
	)

	oauth := fakturoid.NewOAuthClient(
		cfg.Fakturoid.BaseURL,
		cfg.Fakturoid.ClientID,
		cfg.Fakturoid.ClientSecret,
		cfg.Fakturoid.RedirectURI,
		cfg.Fakturoid.UserAgent,
	)
	client := fakturoid.NewClient(oauth, connections, cfg.Fakturoid.BaseURL, cfg.Fakturoid.UserAgent)

	var (
		processingService = processing.NewService(attempts)
		parsedService     = parsed.NewService(uploads, blobs, processingService)
		invoiceService    = invoice.NewService(invoices)
		importerService   = importer.NewService(invoices, mirrors, uploads, cfg.Company.VatNo)
		syncService       = fakturoidSync.NewService(connections, client, mirrors, slog.Default())
	)

	var (
		uploadsH    = uploadHandler.NewHandler(parsedService)
		connectionH = connectionHandler.NewHandler(oauth, client, connections, syncService, cfg.Auth.JWTSecret)
		invoicesH   = invoiceHandler.NewHandler(invoiceService, importerService)
	)

	router := isdocsyncHttp.New(cfg.Auth.JWTSecret, cfg.Server.AllowedOrigins, uploadsH, connectionH, invoicesH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
