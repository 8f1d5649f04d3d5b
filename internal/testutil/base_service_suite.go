package testutil

import (
	"context"
	"time"

	"github.com/creditrail/creditrail/internal/config"
	"github.com/creditrail/creditrail/internal/domain/account"
	"github.com/creditrail/creditrail/internal/domain/catalog"
	"github.com/creditrail/creditrail/internal/domain/ledger"
	"github.com/creditrail/creditrail/internal/domain/subscription"
	"github.com/creditrail/creditrail/internal/domain/webhookevent"
	"github.com/creditrail/creditrail/internal/logger"
	"github.com/creditrail/creditrail/internal/postgres"
	"github.com/creditrail/creditrail/internal/repository"
	"github.com/creditrail/creditrail/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	AccountRepo        account.Repository
	LedgerRepo         ledger.Repository
	SubscriptionRepo   subscription.Repository
	ProcessedEventRepo webhookevent.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	stores  Stores
	db      postgres.IClient
	logger  *logger.Logger
	config  *config.Configuration
	catalog catalog.Resolver
	gateway *MockStripeGateway
	now     time.Time
}

// GetTestConfig returns a configuration with a small plan/pack catalog
// covering the rollover and expiration modes.
func GetTestConfig() *config.Configuration {
	cfg := config.GetDefaultConfig()
	cfg.Catalog = config.CatalogConfig{
		Plans: []config.PlanConfig{
			{
				Key:             "starter",
				PriceID:         "price_starter",
				CreditsPerCycle: 100,
				MaxRollover:     lo.ToPtr(int64(600)),
				ExpirationMode:  types.ExpirationModeNever,
			},
			{
				Key:             "pro",
				PriceID:         "price_pro",
				CreditsPerCycle: 1000,
				MaxRollover:     lo.ToPtr(int64(1200)),
				ExpirationMode:  types.ExpirationModeNever,
			},
			{
				Key:             "cycle",
				PriceID:         "price_cycle",
				CreditsPerCycle: 100,
				MaxRollover:     lo.ToPtr(int64(600)),
				ExpirationMode:  types.ExpirationModeEndOfCycle,
			},
		},
		Packs: []config.PackConfig{
			{
				Key:     "pack_small",
				PriceID: "price_pack_small",
				Credits: 500,
			},
		},
	}
	return cfg
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = GetTestConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = context.Background()
	s.ctx = context.WithValue(s.ctx, types.CtxRequestID, types.GenerateUUID())
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		AccountRepo:        NewInMemoryAccountStore(),
		LedgerRepo:         NewInMemoryLedgerStore(),
		SubscriptionRepo:   NewInMemorySubscriptionStore(),
		ProcessedEventRepo: NewInMemoryProcessedEventStore(),
	}
	s.db = NewMockPostgresClient(s.logger)
	s.catalog = repository.NewStaticCatalogResolver(s.config)
	s.gateway = NewMockStripeGateway()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.AccountRepo.(*InMemoryAccountStore).Clear()
	s.stores.LedgerRepo.(*InMemoryLedgerStore).Clear()
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.ProcessedEventRepo.(*InMemoryProcessedEventStore).Clear()
	s.gateway.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetCatalog returns the catalog resolver built from the test config
func (s *BaseServiceTestSuite) GetCatalog() catalog.Resolver {
	return s.catalog
}

// GetGateway returns the mock provider gateway
func (s *BaseServiceTestSuite) GetGateway() *MockStripeGateway {
	return s.gateway
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}
