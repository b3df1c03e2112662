package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
)

// ContractExpirer closes active contracts whose end date has passed.
type ContractExpirer interface {
	ExpireEnded(ctx context.Context, asOf domain.Date) (int64, error)
}

// ContractExpiryWorker periodically moves ended active contracts to expired
type ContractExpiryWorker struct {
	expirer  ContractExpirer
	logger   *slog.Logger
	interval time.Duration
	today    func() domain.Date
}

func NewContractExpiryWorker(expirer ContractExpirer, logger *slog.Logger, interval time.Duration) *ContractExpiryWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractExpiryWorker{
		expirer:  expirer,
		logger:   logger.With(slog.String("component", "contract_expiry")),
		interval: interval,
		today:    domain.Today,
	}
}

// Start runs a sweep immediately and then on every tick until ctx is done.
// A non-positive interval disables the worker.
func (w *ContractExpiryWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("contract expiry worker disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("contract expiry worker started", slog.Duration("interval", w.interval))
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("contract expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ContractExpiryWorker) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	asOf := w.today()
	n, err := w.expirer.ExpireEnded(sweepCtx, asOf)
	if err != nil {
		w.logger.Error("contract expiry sweep failed",
			slog.String("as_of", asOf.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	w.logger.Debug("contract expiry sweep finished",
		slog.String("as_of", asOf.String()),
		slog.Int64("expired", n),
	)
}
