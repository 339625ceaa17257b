package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/deckwars-server/internal/config"
	"github.com/DoyleJ11/deckwars-server/internal/engine"
	"github.com/DoyleJ11/deckwars-server/internal/httpapi"
	"github.com/DoyleJ11/deckwars-server/internal/hub"
	"github.com/DoyleJ11/deckwars-server/internal/sshd"
	"github.com/DoyleJ11/deckwars-server/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New(ctx, hub.Options{
		MaxConnections: cfg.MaxConnections,
		MaxSessions:    cfg.MaxSessions,
		MaxSpectators:  cfg.MaxSpectators,
	}, engine.NewStandard(cfg.RNGSeed), log.Named("hub"))

	wsOpts := ws.DefaultOptions()
	wsOpts.OutboxDepth = cfg.OutboxDepth
	wsOpts.PingInterval = cfg.PingInterval
	wsOpts.PingTimeout = cfg.PingTimeout
	wsOpts.WriteTimeout = cfg.WriteTimeout
	wsOpts.RateLimit = rate.Limit(cfg.RateLimit)
	wsOpts.RateBurst = cfg.RateBurst

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, wsOpts, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sshSrv *sshd.Server
	if cfg.SSHAddr != "" {
		key, err := hostKey(cfg.SSHHostKey, log)
		if err != nil {
			return err
		}
		sshOpts := sshd.DefaultOptions()
		sshOpts.Addr = cfg.SSHAddr
		sshOpts.HostKey = key
		sshOpts.OutboxDepth = cfg.OutboxDepth
		sshOpts.AuthTimeout = cfg.AuthTimeout
		sshOpts.IdleTimeout = cfg.IdleTimeout
		sshOpts.RateLimit = rate.Limit(cfg.RateLimit)
		sshOpts.RateBurst = cfg.RateBurst
		if sshSrv, err = sshd.New(h, sshOpts, log.Named("ssh")); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	if sshSrv != nil {
		g.Go(func() error { return sshSrv.ListenAndServe(gctx) })
	}

	<-gctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(sctx)
	runErr := g.Wait()
	stop()
	<-h.Done()
	log.Info("shutdown complete")
	return multierr.Combine(runErr, shutdownErr)
}

// hostKey loads the PEM private key at path, or generates an ephemeral
// ed25519 key when path is empty.
func hostKey(path string, log *zap.Logger) (ssh.Signer, error) {
	if path == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		signer, err := ssh.NewSignerFromKey(priv)
		if err != nil {
			return nil, err
		}
		log.Warn("using ephemeral ssh host key", zap.String("fingerprint", ssh.FingerprintSHA256(signer.PublicKey())))
		return signer, nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("ssh host key %s: %w", path, err)
	}
	return signer, nil
}
