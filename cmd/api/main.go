package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/funplanet/claim-api/internal/config"
	"github.com/funplanet/claim-api/internal/domain/admin"
	"github.com/funplanet/claim-api/internal/domain/alert"
	"github.com/funplanet/claim-api/internal/domain/claim"
	"github.com/funplanet/claim-api/internal/domain/ledger"
	"github.com/funplanet/claim-api/internal/domain/trust"
	"github.com/funplanet/claim-api/internal/domain/wallet"
	"github.com/funplanet/claim-api/internal/middleware"
	"github.com/funplanet/claim-api/internal/pkg/chain"
	"github.com/funplanet/claim-api/internal/pkg/database"
	"github.com/funplanet/claim-api/internal/pkg/jwt"
	"github.com/funplanet/claim-api/internal/pkg/logger"
	"github.com/funplanet/claim-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting FUN Planet Claim API")

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

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	adminJWTService := admin.NewJWTService(cfg.JWTSecret, cfg.AdminJWTTTL)

	chainClient := newChainClient(cfg)

	// ---------- Repositories ----------
	ledgerRepo := ledger.NewRepository(db)
	trustRepo := trust.NewRepository(db)
	adminRepo := admin.NewRepository(db)
	walletRepo := wallet.NewRepository(db)

	// ---------- Services ----------
	ledgerService := ledger.NewService(ledgerRepo)
	walletService := wallet.NewService(walletRepo)

	limiter := trust.NewRedisRateLimiter(redis, cfg.HourlyClaimLimit)
	trustService := trust.NewService(trustRepo, ledgerRepo, limiter, trust.Policy{
		MaxAccountsPerIP:  cfg.MaxAccountsPerIP,
		HourlyLimit:       cfg.HourlyClaimLimit,
		MinAccountAgeDays: cfg.MinAccountAgeDays,
		ApprovalThreshold: cfg.ApprovalThreshold,
	})

	// Seed the cap guard from the same document the admin defaults start
	// from, so a fresh deploy enforces per-age-group caps before any admin
	// has written settings.
	systemDefaults := defaultSystemSettings(cfg)

	nonceStore := claim.NewRedisNonceStore(redis, cfg.ChallengeTTL)
	capGuard := claim.NewRedisCapGuard(redis, systemDefaults.AgeGroupDailyCaps, systemDefaults.DefaultDailyCap, systemDefaults.MaxDailyPayout)

	alertHub := alert.NewHub(redis)
	go alertHub.Run()
	defer alertHub.Shutdown()
	alerts := alert.NewPublisher(alertHub)

	// Settings appliers rebuild the trust policy from the two settings
	// documents that feed it, so updates to either keep the other's values.
	var claimService *claim.Service
	var policyMu sync.Mutex
	trustPolicy := trust.Policy{
		MaxAccountsPerIP:  cfg.MaxAccountsPerIP,
		HourlyLimit:       cfg.HourlyClaimLimit,
		MinAccountAgeDays: cfg.MinAccountAgeDays,
		ApprovalThreshold: cfg.ApprovalThreshold,
	}
	appliers := admin.Appliers{
		Reward: func(s admin.RewardSettings) {
			claimService.UpdatePolicy(claim.Policy{
				WelcomeAmount:      s.WelcomeAmount,
				PlayGameAmount:     s.PlayGameAmount,
				UploadGameAmount:   s.UploadGameAmount,
				DailyCheckinAmount: s.DailyCheckinAmount,
				Cooldown:           time.Duration(s.CooldownHours) * time.Hour,
			})
			policyMu.Lock()
			trustPolicy.ApprovalThreshold = s.ApprovalThreshold
			trustService.UpdatePolicy(trustPolicy)
			policyMu.Unlock()
		},
		Security: func(s admin.SecuritySettings) {
			policyMu.Lock()
			trustPolicy.MaxAccountsPerIP = s.MaxAccountsPerIP
			trustPolicy.HourlyLimit = s.HourlyClaimLimit
			trustPolicy.MinAccountAgeDays = s.MinAccountAgeDays
			trustService.UpdatePolicy(trustPolicy)
			policyMu.Unlock()
			limiter.SetLimit(s.HourlyClaimLimit)
		},
		System: func(s admin.SystemSettings) {
			capGuard.SetCaps(s.AgeGroupDailyCaps, s.DefaultDailyCap, s.MaxDailyPayout)
		},
	}

	adminService := admin.NewService(adminRepo, ledgerRepo, nil, chainClient, appliers, admin.Defaults{
		Reward: admin.RewardSettings{
			WelcomeAmount:      cfg.WelcomeAmount,
			PlayGameAmount:     cfg.PlayGameAmount,
			UploadGameAmount:   cfg.UploadGameAmount,
			DailyCheckinAmount: cfg.DailyCheckinAmount,
			CooldownHours:      int(cfg.ClaimCooldown / time.Hour),
			ApprovalThreshold:  cfg.ApprovalThreshold,
		},
		Security: admin.SecuritySettings{
			MaxAccountsPerIP:  cfg.MaxAccountsPerIP,
			HourlyClaimLimit:  cfg.HourlyClaimLimit,
			MinAccountAgeDays: cfg.MinAccountAgeDays,
		},
		System: systemDefaults,
	})

	claimService = claim.NewService(ledgerRepo, trustService, chainClient, nonceStore, capGuard, adminService, alerts, claim.Policy{
		WelcomeAmount:      cfg.WelcomeAmount,
		PlayGameAmount:     cfg.PlayGameAmount,
		UploadGameAmount:   cfg.UploadGameAmount,
		DailyCheckinAmount: cfg.DailyCheckinAmount,
		Cooldown:           cfg.ClaimCooldown,
	})
	adminService.SetOrchestrator(claimService)

	// Pull persisted settings into the running services so a restart does not
	// silently fall back to env defaults.
	bootstrapSettings(adminService, appliers)

	// ---------- Handlers ----------
	claimHandler := claim.NewHandler(claimService, walletService)
	walletHandler := wallet.NewHandler(walletService)
	trustHandler := trust.NewHandler(trustService)
	ledgerHandler := ledger.NewHandler(ledgerService)
	adminHandler := admin.NewHandler(adminService, adminJWTService)
	alertHandler := alert.NewHandler(alertHub)

	authMiddleware := middleware.Auth(jwtService)
	adminAuthMiddleware := admin.AuthMiddleware(adminJWTService, adminService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/claims", claimHandler.Routes(authMiddleware))
		r.Mount("/wallet", walletHandler.Routes(authMiddleware))
		r.Mount("/trust", trustHandler.Routes(authMiddleware))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/balances", ledgerHandler.Balances)
			r.Post("/rewards", ledgerHandler.RecordReward)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Mount("/", adminHandler.Routes())

		// WebSocket clients cannot set headers; accept the token as a query
		// parameter like the rest of the platform does.
		r.Get("/alerts/ws", func(w http.ResponseWriter, r *http.Request) {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
			adminAuthMiddleware(http.HandlerFunc(alertHandler.WebSocket)).ServeHTTP(w, r)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// newChainClient picks the real ERC-20 client when the chain is configured
// and the null client otherwise. The capability is decided once at startup,
// never probed at claim time.
func newChainClient(cfg *config.Config) chain.Client {
	if cfg.ChainRPCURL == "" {
		log.Warn().Msg("Chain RPC not configured, using null chain client (no real transfers)")
		return chain.NewNullClient()
	}

	client, err := chain.NewERC20Client(chain.Config{
		RPCURL:        cfg.ChainRPCURL,
		TokenContract: cfg.TokenContract,
		PrivateKeyHex: cfg.HotWalletKey,
		ChainID:       cfg.ChainID,
		SubmitTimeout: cfg.ChainSubmitTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create chain client")
	}
	return client
}

// defaultSystemSettings is the system settings document a deployment starts
// with before any admin write.
func defaultSystemSettings(cfg *config.Config) admin.SystemSettings {
	return admin.SystemSettings{
		MaxDailyPayout:    cfg.MaxDailyPayout,
		AgeGroupDailyCaps: admin.DefaultAgeGroupCaps(),
		DefaultDailyCap:   cfg.DefaultDailyCap,
	}
}

func bootstrapSettings(adminService *admin.Service, appliers admin.Appliers) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s, err := adminService.RewardSettings(ctx); err == nil {
		appliers.Reward(s)
	} else {
		log.Warn().Err(err).Msg("Failed to load reward settings, using defaults")
	}
	if s, err := adminService.SecuritySettings(ctx); err == nil {
		appliers.Security(s)
	} else {
		log.Warn().Err(err).Msg("Failed to load security settings, using defaults")
	}
	if s, err := adminService.SystemSettings(ctx); err == nil {
		appliers.System(s)
	} else {
		log.Warn().Err(err).Msg("Failed to load system settings, using defaults")
	}
}
