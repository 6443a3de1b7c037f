package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beetlebugorg/shapefile/internal/config"
	"github.com/beetlebugorg/shapefile/internal/logger"
	"github.com/beetlebugorg/shapefile/internal/resultcache"
	"github.com/beetlebugorg/shapefile/internal/server"
)

// openCache builds the configured result cache.
func openCache(ctx context.Context, c config.CacheConfig) (resultcache.Cache, error) {
	switch c.Type {
	case "none", "off":
		return resultcache.Nop{}, nil
	case "memory", "":
		return resultcache.NewMemory(c.Size, c.TTL()), nil
	case "redis":
		o := resultcache.RedisOptionsFromEnv()
		if c.Redis != nil {
			if c.Redis.Addr != "" {
				o.Addr = c.Redis.Addr
			}
			if c.Redis.Password != "" {
				o.Password = c.Redis.Password
			}
			if c.Redis.DB != 0 {
				o.DB = c.Redis.DB
			}
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := resultcache.OpenRedis(pingCtx, o, c.TTL())
		if err != nil {
			return nil, fmt.Errorf("redis %s: %w", o.Addr, err)
		}
		return rc, nil
	}
	return nil, fmt.Errorf("unknown cache type %q", c.Type)
}

func runServe(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to serve")
	addr := fs.String("addr", cfg.Server.Addr, "listen address")
	cacheType := fs.String("cache", cfg.Cache.Type, "result cache: memory, redis or none")
	_ = fs.Parse(args)

	l := logger.L()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}

	cacheCfg := cfg.Cache
	cacheCfg.Type = *cacheType
	cache, err := openCache(ctx, cacheCfg)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer cache.Close()

	srv := server.New(g, cache, server.Options{
		MaxResults:  cfg.Geocode.MaxResults,
		MaxDistance: cfg.Geocode.MaxDistance,
		MaxBatch:    cfg.Server.MaxBatch,
		Logger:      l,
	})
	hs := &http.Server{
		Addr:         *addr,
		Handler:      srv.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		l.Info("server_listening", "addr", *addr, "records", len(g.Records()), "cache", cacheCfg.Type)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	l.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hs.Shutdown(shutdownCtx)
}
