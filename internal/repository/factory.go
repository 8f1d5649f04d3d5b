package repository

import (
	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/domain/ledger"
	"github.com/creditrail/creditrail/internal/domain/subscription"
	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	repo "github.com/creditrail/creditrail/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides all repository implementations
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewAccountRepository,
			NewLedgerRepository,
			NewSubscriptionRepository,
			NewWebhookEventRepository,
			NewStaticCatalogResolver,
		),
	)
}

func NewAccountRepository(client postgres.IClient, logger *logger.Logger) account.Repository {
	return repo.NewAccountRepository(client, logger)
}

func NewLedgerRepository(client postgres.IClient, logger *logger.Logger) ledger.Repository {
	return repo.NewLedgerRepository(client, logger)
}

func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) subscription.Repository {
	return repo.NewSubscriptionRepository(client, logger)
}

func NewWebhookEventRepository(client postgres.IClient, logger *logger.Logger) webhookevent.Repository {
	return repo.NewWebhookEventRepository(client, logger)
}
