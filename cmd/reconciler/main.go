package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/funplanet/claim-api/internal/config"
	"github.com/funplanet/claim-api/internal/domain/alert"
	"github.com/funplanet/claim-api/internal/domain/claim"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/pkg/database"
	"github.com/funplanet/claim-api/internal/pkg/logger"
	"github.com/funplanet/claim-api/internal/pkg/retry"
)

const (
	// A submitted claim should confirm within seconds; anything older than
	// this never got its confirmation recorded.
	submittedStaleAfter = 15 * time.Minute

	// Parked claims nobody reviewed within a day are expired and released.
	reviewStaleAfter = 24 * time.Hour

	scanBatchSize = 100
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Dur("interval", cfg.ReconcileInterval).
		Msg("Starting claim reconciler")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	alertHub := alert.NewHub(redis)
	go alertHub.Run()
	defer alertHub.Shutdown()

	r := &reconciler{
		ledger: ledger.NewRepository(db),
		// Only Release is used here, so the thresholds never matter; the
		// guard just needs the same redis counters the API reserves against.
		caps:   claim.NewRedisCapGuard(redis, nil, 0, 0),
		alerts: alert.NewPublisher(alertHub),
		policy: retry.DefaultPolicy(),
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(cfg.ReconcileInterval),
		gocron.NewTask(r.run),
	); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule reconcile job")
	}

	sched.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down reconciler...")
	if err := sched.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Scheduler shutdown error")
	}
}

// claimStore is the slice of the ledger the reconciler scans and settles.
// Satisfied by ledger.Repository.
type claimStore interface {
	ListByStatus(ctx context.Context, status ledger.ClaimStatus, olderThan time.Duration, limit int) ([]*ledger.ClaimRecord, error)
	UpdateClaimStatus(ctx context.Context, id uuid.UUID, status ledger.ClaimStatus, txHash string) error
	ReleaseByRecord(ctx context.Context, recordID uuid.UUID) (int64, error)
}

type reconciler struct {
	ledger claimStore
	caps   claim.CapGuard
	alerts *alert.Publisher
	policy retry.Policy
}

func (r *reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	r.flagStaleSubmissions(ctx)
	r.reportUnreconciled(ctx)
	r.expireStaleReviews(ctx)
}

// flagStaleSubmissions moves submitted-but-never-confirmed records to
// needs_reconcile. The transfer may have landed on chain, so the record is
// never failed or rolled back here; an operator resolves it by hand.
func (r *reconciler) flagStaleSubmissions(ctx context.Context) {
	var records []*ledger.ClaimRecord
	err := r.policy.Do(ctx, "scan_stale_submissions", func(ctx context.Context) error {
		var err error
		records, err = r.ledger.ListByStatus(ctx, ledger.StatusSubmitted, submittedStaleAfter, scanBatchSize)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan stale submissions")
		return
	}

	for _, rec := range records {
		if err := r.ledger.UpdateClaimStatus(ctx, rec.ID, ledger.StatusNeedsReconcile, rec.TxHash.String); err != nil {
			log.Error().Err(err).Str("claim_id", rec.ID.String()).Msg("Failed to flag claim for reconciliation")
			continue
		}
		r.alerts.Alert(ctx, "needs_reconcile",
			"claim "+rec.ID.String()+" submitted but never confirmed, flagged for manual reconciliation")
	}
}

// reportUnreconciled re-alerts on records still awaiting manual resolution.
// Alerts carry fresh IDs each cycle; consumers tolerate duplicates.
func (r *reconciler) reportUnreconciled(ctx context.Context) {
	var records []*ledger.ClaimRecord
	err := r.policy.Do(ctx, "scan_needs_reconcile", func(ctx context.Context) error {
		var err error
		records, err = r.ledger.ListByStatus(ctx, ledger.StatusNeedsReconcile, 0, scanBatchSize)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan unreconciled claims")
		return
	}

	if len(records) == 0 {
		return
	}

	log.Warn().Int("count", len(records)).Msg("Claims awaiting manual reconciliation")
	for _, rec := range records {
		log.Warn().
			Str("claim_id", rec.ID.String()).
			Str("wallet", rec.Wallet).
			Int64("amount", rec.Amount).
			Str("tx_hash", rec.TxHash.String).
			Msg("Claim needs reconciliation")
	}
}

// expireStaleReviews rejects approval-queue entries nobody acted on and
// releases their ledger reservations and daily cap budget so the rewards
// become claimable again, mirroring an in-process admin rejection.
func (r *reconciler) expireStaleReviews(ctx context.Context) {
	var records []*ledger.ClaimRecord
	err := r.policy.Do(ctx, "scan_stale_reviews", func(ctx context.Context) error {
		var err error
		records, err = r.ledger.ListByStatus(ctx, ledger.StatusPendingReview, reviewStaleAfter, scanBatchSize)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to scan stale approval queue entries")
		return
	}

	for _, rec := range records {
		if _, err := r.ledger.ReleaseByRecord(ctx, rec.ID); err != nil {
			log.Error().Err(err).Str("claim_id", rec.ID.String()).Msg("Failed to release expired claim reservation")
			continue
		}
		r.caps.Release(ctx, rec.UserID, rec.Amount)
		if err := r.ledger.UpdateClaimStatus(ctx, rec.ID, ledger.StatusRejected, ""); err != nil {
			log.Error().Err(err).Str("claim_id", rec.ID.String()).Msg("Failed to reject expired claim")
			continue
		}
		r.alerts.Alert(ctx, "approval_expired",
			"claim "+rec.ID.String()+" sat in the approval queue for over 24h and was expired")
	}
}
