package cli

import (
	"context"
	"log/slog"

	"github.com/me/solbatch/internal/config"
	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/rpc"
	"github.com/me/solbatch/internal/store"
	"github.com/me/solbatch/internal/token"
)

const lamportsPerSol = 1_000_000_000

func solToLamports(sols float64) uint64 {
	return uint64(sols * lamportsPerSol)
}

func lamportsToSol(lamports uint64) float64 {
	return float64(lamports) / lamportsPerSol
}

// app bundles the loaded configuration with the clients the commands
// share. Commands that do not touch the cluster (wallet generate,
// wallet read) work without one.
type app struct {
	cfg *config.Config
	rpc *rpc.Client
}

func loadApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg: cfg,
		rpc: rpc.NewClient(cfg.RPC.URI, logger),
	}, nil
}

func (a *app) tokenClient() *token.Client {
	return token.NewClient(a.rpc, a.cfg.Token.Mint, a.cfg.Token.Owner, logger)
}

// wallet returns the configured wallet at index i, guarding against
// out-of-range transfer cases in the config.
func (a *app) wallet(i int) (keys.Keypair, error) {
	if err := a.cfg.CheckWalletIndex(i); err != nil {
		return keys.Keypair{}, err
	}
	return a.cfg.Wallets[i], nil
}

// recorder appends submitted operations to the local history store.
// History is best-effort: a store failure is logged and the command
// carries on, so a broken database never blocks a transfer.
type recorder struct {
	st     store.Store
	logger *slog.Logger
}

func openRecorder() *recorder {
	r := &recorder{logger: logger}
	if flagNoHistory {
		return r
	}
	path := flagHistoryPath
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			logger.Warn("history disabled", "error", err)
			return r
		}
	}
	st, err := store.NewSQLiteStore(path, logger)
	if err != nil {
		logger.Warn("history disabled", "error", err)
		return r
	}
	if err := st.Migrate(context.Background()); err != nil {
		logger.Warn("history disabled", "error", err)
		st.Close()
		return r
	}
	r.st = st
	return r
}

func (r *recorder) record(ctx context.Context, rec *store.Record) {
	if r.st == nil {
		return
	}
	if err := r.st.Append(ctx, rec); err != nil {
		r.logger.Warn("history append failed", "signature", rec.Signature, "error", err)
	}
}

func (r *recorder) mark(ctx context.Context, signature string, status store.Status) {
	if r.st == nil {
		return
	}
	if err := r.st.MarkStatus(ctx, signature, status); err != nil {
		r.logger.Warn("history update failed", "signature", signature, "error", err)
	}
}

func (r *recorder) close() {
	if r.st == nil {
		return
	}
	if err := r.st.Close(); err != nil {
		r.logger.Warn("history close failed", "error", err)
	}
}
