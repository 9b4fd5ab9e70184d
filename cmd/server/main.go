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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/waraqa-store/api/internal/cart"
	"github.com/waraqa-store/api/internal/catalog"
	"github.com/waraqa-store/api/internal/changefeed"
	"github.com/waraqa-store/api/internal/config"
	"github.com/waraqa-store/api/internal/database"
	"github.com/waraqa-store/api/internal/router"
	"github.com/waraqa-store/api/internal/storage"
	"github.com/waraqa-store/api/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ERROR: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	log.Println("Connected to database")

	bucket, err := storage.NewDisk(cfg.StorageDir, cfg.PublicBaseURL, cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	queries := database.New(pool)
	hub := ws.NewHub()
	feed := changefeed.NewListener(changefeed.PgxDialer(cfg.DatabaseURL), hub)

	categories, err := catalog.NewCategoryStore(ctx, queries, feed)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	defer categories.Close()

	products, err := catalog.NewProductStore(ctx, queries, pool, func(db database.DBTX) catalog.ProductQuerier {
		return database.New(db)
	}, feed)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	defer products.Close()

	carts := cart.NewRegistry(cfg.CartIdleTTL)

	r := router.New(cfg, queries, pool, hub, router.Catalog{
		Products:   products,
		Categories: categories,
	}, router.Sessions{Carts: carts}, bucket)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := feed.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("change feed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		carts.Run(gctx, 0)
		return nil
	})
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
