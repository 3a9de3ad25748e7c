// Package cli is the interactive front end: a small REPL over the
// session manager and the reconciliation engine.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vcompra/cartsync/internal/account"
	"github.com/vcompra/cartsync/internal/config"
	"github.com/vcompra/cartsync/internal/filex"
	"github.com/vcompra/cartsync/internal/logging"
	"github.com/vcompra/cartsync/internal/session"
	"github.com/vcompra/cartsync/internal/store"
	"github.com/vcompra/cartsync/internal/store/bolt"
	"github.com/vcompra/cartsync/internal/store/jsonfile"
	"github.com/vcompra/cartsync/internal/store/postgres"
	"github.com/vcompra/cartsync/internal/syncer"
	"github.com/vcompra/cartsync/internal/vault"
)

// App owns the wired-up services and the terminal I/O.
type App struct {
	config  *config.Config
	session *session.Manager
	engine  *syncer.Engine
	cache   syncer.LocalCache
	repo    store.Repository

	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger
}

// NewApp wires the configured backends together. The data directory is
// created if missing; it holds the session document, the local dataset
// cache and, for the jsonfile backend, the user collection.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("preparing data dir: %w", err)
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	accounts := account.NewService(repo)
	v := vault.New(accounts, blobs, []byte(cfg.VaultMasterKey), log)

	sessions := session.NewFileStore(filepath.Join(cfg.DataDir, "session.json"))
	mgr := session.NewManager(accounts, sessions, []byte(cfg.TokenSecret), cfg.TokenValidity, log)

	cache := syncer.NewFileCache(filepath.Join(cfg.DataDir, "local.json"))
	engine := syncer.New(mgr, v, cache, log)

	app := &App{
		config:  cfg,
		session: mgr,
		engine:  engine,
		cache:   cache,
		repo:    repo,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		log:     log,
	}

	if err := mgr.Bootstrap(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func openRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.StoreBackend {
	case "jsonfile":
		return jsonfile.NewRepository(filepath.Join(cfg.DataDir, "users.json")), nil
	case "bolt":
		return bolt.Open(filepath.Join(cfg.DataDir, "users.db"))
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (vault.BlobStore, error) {
	switch cfg.BlobBackend {
	case "inline":
		return vault.InlineBlobStore{}, nil
	case "s3":
		return vault.NewS3BlobStore(ctx, vault.S3Config{
			RootUser:     cfg.S3RootUser,
			RootPassword: cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// Run drives the REPL until EOF or an exit command.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.statusLine, scanner)
}

// Close releases the credential store.
func (a *App) Close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Error(context.Background(), "closing store", "error", err)
		}
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() == session.StateAuthenticated
}

func (a *App) statusLine() string {
	if user, ok := a.session.Current(); ok {
		return user.Username
	}
	return "anonymous"
}
