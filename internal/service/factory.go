package service

import (
	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/domain/catalog"
	"github.com/creditrail/creditrail/internal/domain/ledger"
	"github.com/creditrail/creditrail/internal/domain/subscription"
	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	"github.com/creditrail/creditrail/internal/integration/stripe"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	AccountRepo        account.Repository
	LedgerRepo         ledger.Repository
	SubscriptionRepo   subscription.Repository
	ProcessedEventRepo webhookevent.Repository
	Catalog            catalog.Resolver

	// Payment provider (read-only)
	Gateway stripe.Gateway
}

// NewServiceParams bundles common service dependencies
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	subscriptionRepo subscription.Repository,
	processedEventRepo webhookevent.Repository,
	catalogResolver catalog.Resolver,
	gateway stripe.Gateway,
) ServiceParams {
	return ServiceParams{
		Logger:             logger,
		Config:             config,
		DB:                 db,
		AccountRepo:        accountRepo,
		LedgerRepo:         ledgerRepo,
		SubscriptionRepo:   subscriptionRepo,
		ProcessedEventRepo: processedEventRepo,
		Catalog:            catalogResolver,
		Gateway:            gateway,
	}
}

// Module provides all services
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewServiceParams,
			NewAccountService,
			NewPlanService,
			NewLedgerService,
			NewInvoiceService,
			NewSubscriptionService,
			NewRefundService,
			NewPurchaseService,
			NewWebhookService,
		),
	)
}
