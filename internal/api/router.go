package api

import (
	"github.com/ayo6706/ledger-engine/internal/api/handler"
	"github.com/ayo6706/ledger-engine/internal/api/middleware"
	"github.com/ayo6706/ledger-engine/internal/api/spec"
	"github.com/ayo6706/ledger-engine/internal/cache"
	"github.com/ayo6706/ledger-engine/internal/config"
	"github.com/ayo6706/ledger-engine/internal/fees"
	"github.com/ayo6706/ledger-engine/internal/gateway"
	"github.com/ayo6706/ledger-engine/internal/idempotency"
	"github.com/ayo6706/ledger-engine/internal/repository"
	"github.com/ayo6706/ledger-engine/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Router wires services into the chi route tree. Everything it needs is
// injected; no handler reaches a global client.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	store     repository.Store
	idemStore *idempotency.Store
	redis     redis.Cmdable
	calc      *fees.Calculator
	rates     service.RateSource
	resolver  gateway.RecipientResolver
	gateway   gateway.Gateway
	quotes    cache.QuoteStore
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, store repository.Store, idemStore *idempotency.Store, redisClient redis.Cmdable, calc *fees.Calculator, rates service.RateSource, resolver gateway.RecipientResolver, gw gateway.Gateway, quotes cache.QuoteStore) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     store,
		idemStore: idemStore,
		redis:     redisClient,
		calc:      calc,
		rates:     rates,
		resolver:  resolver,
		gateway:   gw,
		quotes:    quotes,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Services
	ledgerSvc := service.NewLedgerService(api.store)
	recorder := service.NewRecorder(api.store)
	transferSvc := service.NewTransferService(api.store, ledgerSvc, recorder, api.calc, api.resolver)
	quoteSvc := service.NewQuoteService(api.store, ledgerSvc, recorder, api.rates, api.calc, api.quotes)
	fundingSvc := service.NewFundingService(api.store, ledgerSvc, recorder)
	payoutSvc := service.NewPayoutService(api.store, ledgerSvc, recorder, api.gateway)

	// Handlers
	accountHandler := handler.NewAccountHandler(ledgerSvc)
	transferHandler := handler.NewTransferHandler(transferSvc)
	quoteHandler := handler.NewQuoteHandler(quoteSvc)
	fundingHandler := handler.NewFundingHandler(fundingSvc)
	payoutHandler := handler.NewPayoutHandler(payoutSvc)
	webhookHandler := handler.NewWebhookHandler(fundingSvc, api.cfg.WebhookHMACKey, api.cfg.WebhookSkipSignature)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)

	idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Post("/v1/webhooks/funding", webhookHandler.HandleFundingWebhook)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Accounts
		r.Post("/v1/accounts", accountHandler.OpenAccount)
		r.Get("/v1/accounts", accountHandler.ListAccounts)
		r.Get("/v1/accounts/{id}/balance", accountHandler.GetBalance)
		r.Get("/v1/accounts/{id}/statement", accountHandler.GetStatement)
		r.Post("/v1/accounts/{id}/close", accountHandler.Close)
		r.With(middleware.RequireRole("admin")).Post("/v1/accounts/{id}/freeze", accountHandler.Freeze)
		r.With(middleware.RequireRole("admin")).Post("/v1/accounts/{id}/unfreeze", accountHandler.Unfreeze)

		// Transfers
		r.With(idem).Post("/v1/transfers/internal", transferHandler.MakeInternalTransfer)
		r.With(idem).Post("/v1/transfers/p2p", transferHandler.MakeP2PTransfer)
		r.With(idem).Post("/v1/transfers/bank", transferHandler.MakeBankTransfer)
		r.With(idem).Post("/v1/transfers/mobile-money", transferHandler.MakeMobileMoneyTransfer)
		r.With(idem).Post("/v1/transfers/crypto", transferHandler.MakeCryptoTransfer)
		r.Get("/v1/transfers/{id}", transferHandler.GetTransfer)

		// Quotes
		r.Post("/v1/quotes", quoteHandler.CreateQuote)
		r.Get("/v1/quotes/{id}", quoteHandler.GetQuote)
		r.With(idem).Post("/v1/quotes/{id}/execute", quoteHandler.ExecuteQuote)

		// Funding
		r.Post("/v1/funding", fundingHandler.InitiateFunding)
		r.Get("/v1/funding/{id}", fundingHandler.GetFunding)
		r.Post("/v1/funding/{id}/cancel", fundingHandler.CancelFunding)

		// Payouts
		r.Get("/v1/payouts/{id}", payoutHandler.GetPayout)
		r.Post("/v1/payouts/{id}/cancel", payoutHandler.CancelPayout)
		r.With(middleware.RequireRole("admin")).Post("/v1/payouts/{id}/approve", payoutHandler.ApprovePayout)
		r.With(middleware.RequireRole("admin")).Post("/v1/payouts/{id}/reject", payoutHandler.RejectPayout)
	})

	return r
}
