package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/beautyhaven/storefront/internal/cart"
	"github.com/beautyhaven/storefront/internal/catalog"
	"github.com/beautyhaven/storefront/internal/config"
	"github.com/beautyhaven/storefront/internal/events"
	"github.com/beautyhaven/storefront/internal/httpserver"
	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/payment"
	"github.com/beautyhaven/storefront/internal/search"
	"github.com/beautyhaven/storefront/internal/storage"
	"github.com/beautyhaven/storefront/pkg/db"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gormDB, err := db.Open(initCtx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := storage.AutoMigrate(gormDB); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var store cart.BlobStore
	switch cfg.CartStore {
	case "redis":
		store = &storage.RedisKV{Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})}
	default:
		store = &storage.GormKV{DB: gormDB}
	}

	cartSvc := cart.NewService(store)
	cartSvc.Restore(logging.IntoContext(initCtx, logger))

	cat := catalog.NewCatalog()
	client := catalog.NewClient(cfg.ProductsURL)
	if products, err := client.Fetch(initCtx); err != nil {
		logger.Warn("initial catalog fetch failed, use /api/products/refresh to retry", "error", err)
	} else {
		cat.Replace(products)
		logger.Info("catalog loaded", "count", len(products))
	}

	recorders := []payment.Recorder{&storage.OrderArchive{DB: gormDB}}

	if len(cfg.KafkaBrokers) > 0 {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		recorders = append(recorders, payment.RecorderFunc(producer.PublishOrderCreated))
	}

	productHandler := &httpserver.ProductHandler{Client: client, Catalog: cat}
	var searchHandler *httpserver.SearchHandler
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(cfg.ESURL, cfg.ESUser, cfg.ESPassword)
		if err != nil {
			logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		} else {
			productHandler.ES = esClient
			productHandler.ESIndex = cfg.ESIndex
			searchHandler = &httpserver.SearchHandler{ES: esClient, Index: cfg.ESIndex}
			if err := search.IndexProducts(initCtx, esClient, cfg.ESIndex, cat.Products()); err != nil {
				logger.Warn("initial product indexing failed", "error", err)
			}
		}
	}

	checkout := payment.NewCheckout(cartSvc, payment.RandomOutcome{}, payment.Config{
		MpesaSuccessRate: cfg.MpesaSuccessRate,
		BankSuccessRate:  cfg.BankSuccessRate,
		MpesaDelay:       time.Duration(cfg.MpesaDelayMS) * time.Millisecond,
		BankDelay:        time.Duration(cfg.BankDelayMS) * time.Millisecond,
	}, recorders...)

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.CORS())
	e.Use(logging.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Products: productHandler,
		Cart:     &httpserver.CartHandler{Svc: cartSvc, Catalog: cat},
		Checkout: &httpserver.CheckoutHandler{Svc: checkout, Cart: cartSvc},
		Search:   searchHandler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
