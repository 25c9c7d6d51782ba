package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kiosk/internal/cart"
	"kiosk/internal/checkout"
	"kiosk/internal/config"
	"kiosk/internal/logger"
	"kiosk/internal/pipeline"
	"kiosk/internal/repository/sqlite"
	"kiosk/internal/route"
	"kiosk/internal/service/ai"
	"kiosk/internal/service/camera"
	"kiosk/internal/service/catalog"
	"kiosk/internal/service/storage"
	"kiosk/internal/service/websocket"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	hubService    *websocket.HubService
	board         *cart.Board
	bufferService *storage.BufferService
	flow          *checkout.Flow
	pipeline      *pipeline.Pipeline
	reconciler    *cart.Reconciler
	server        *http.Server
}

// NewApp wires configuration, storage, the detection pipeline and the HTTP
// surface. A detector or camera that cannot be opened leaves the kiosk
// running with an unavailable cart instead of failing.
func NewApp() (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.NewLogger(cfg)
	clk := clock.New()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	productRepo := sqlite.NewProductRepository(db)
	purchaseRepo := sqlite.NewPurchaseRepository(db)
	evidenceRepo := sqlite.NewEvidenceRepository(db)

	prices, err := catalog.Load(productRepo, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := websocket.NewHubService(log)
	board := cart.NewBoard()
	buffer := storage.NewBufferService(cfg.ImageDirectory, cfg.EvidenceBufferLimit, cfg.EvidenceFlushInterval, clk, log, evidenceRepo)
	flow := checkout.NewFlow(board, purchaseRepo, buffer, cfg.PaymentMethods, clk, log)

	a := &App{
		config:        cfg,
		logger:        log,
		db:            db,
		hubService:    hub,
		board:         board,
		bufferService: buffer,
		flow:          flow,
	}

	if err := a.setupPipeline(prices, clk); err != nil {
		log.Error("Detection disabled: %v", err)
		unavailable := cart.Unavailable(err, clk.Now())
		board.Publish(unavailable)
		hub.Publish(unavailable)
	}

	router := route.SetupRoutes(route.Dependencies{
		Config:    cfg,
		Logger:    log,
		Hub:       hub,
		Board:     board,
		Checkout:  flow,
		Products:  productRepo,
		Purchases: purchaseRepo,
		Evidence:  evidenceRepo,
	})
	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return a, nil
}

// setupPipeline opens the detector and the camera and builds the pipeline
// and the cart reconciler on top of them.
func (a *App) setupPipeline(prices cart.PriceTable, clk clock.Clock) error {
	detector, err := ai.NewDetectorService(a.config, a.logger)
	if err != nil {
		return err
	}

	source, err := camera.NewCameraService(a.config.CameraDevice, a.logger)
	if err != nil {
		detector.Close()
		return err
	}

	a.pipeline = pipeline.New(pipeline.Options{
		CaptureInterval: a.config.CaptureInterval,
		PollTimeout:     a.config.WorkerPollTimeout,
		Clock:           clk,
	}, source, detector, a.hubService, a.logger)

	a.reconciler = cart.NewReconciler(cart.Options{
		Interval:       a.config.ReconcileInterval,
		HistoryTimeout: a.config.HistoryTimeout,
		Clock:          clk,
	}, a.pipeline.Batches(), prices, a.hubService, a.logger, a.board, a.hubService)

	return nil
}

// Run serves until ctx is cancelled or the HTTP server fails, then shuts
// every component down.
func (a *App) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.hubService.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		a.bufferService.Run(bgCtx)
	}()

	if a.pipeline != nil {
		if err := a.pipeline.Start(ctx, a.reconciler); err != nil {
			a.logger.Error("Failed to start pipeline: %v", err)
		}
	}

	fmt.Printf("🚀 Self-checkout Kiosk\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Camera: %s\n", a.config.CameraDevice)
	fmt.Printf("🤖 AI Model: %s (%s)\n", a.config.ModelPath, a.config.ModelFormat)
	fmt.Printf("🗄️  Database: %s\n", a.config.DatabasePath)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown requested")
	case runErr = <-serverErr:
		a.logger.Error("HTTP server failed: %v", runErr)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err := multierr.Append(runErr, a.server.Shutdown(shutdownCtx))

	if a.pipeline != nil {
		err = multierr.Append(err, a.pipeline.Stop())
	}

	cancel()
	wg.Wait()

	err = multierr.Combine(err, a.db.Close(), a.logger.Close())
	return err
}
