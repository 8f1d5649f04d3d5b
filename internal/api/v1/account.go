package v1

import (
	"net/http"
	"strconv"

	"github.com/creditrail/creditrail/internal/domain/credit"
	ierr "github.com/creditrail/creditrail/internal/errors"
	"github.com/creditrail/creditrail/internal/service"
	"github.com/gin-gonic/gin"
)

// AccountHandler exposes account provisioning and balance reads.
type AccountHandler struct {
	accounts service.AccountService
	ledger   service.LedgerService
	plans    service.PlanService
}

func NewAccountHandler(accounts service.AccountService, ledger service.LedgerService, plans service.PlanService) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		ledger:   ledger,
		plans:    plans,
	}
}

type createAccountRequest struct {
	UserID             string `json:"user_id"`
	ProviderCustomerID string `json:"provider_customer_id" binding:"required"`
}

// Create handles POST /v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	acct, err := h.accounts.Create(c.Request.Context(), req.UserID, req.ProviderCustomerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

// GetBalance handles GET /v1/accounts/:id/balance.
func (h *AccountHandler) GetBalance(c *gin.Context) {
	acct, err := h.ledger.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":              acct.ID,
		"subscription_credits": acct.SubscriptionCredits,
		"purchased_credits":    acct.PurchasedCredits,
		"combined_balance":     acct.CombinedBalance(),
		"subscription_status":  acct.SubscriptionStatus,
		"subscription_tier":    acct.SubscriptionTier,
	})
}

// ListTransactions handles GET /v1/accounts/:id/transactions.
func (h *AccountHandler) ListTransactions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	txs, err := h.ledger.ListTransactions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// PreviewGrant handles GET /v1/accounts/:id/grants/preview?price_id=...
// It reports what a cycle grant for the given plan would do to the current
// balance without writing anything.
func (h *AccountHandler) PreviewGrant(c *gin.Context) {
	priceID := c.Query("price_id")
	if priceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "price_id is required"})
		return
	}

	acct, err := h.ledger.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	plan, err := h.plans.ResolvePlan(c.Request.Context(), priceID)
	if err != nil {
		respondError(c, err)
		return
	}

	current := acct.CombinedBalance()
	result := credit.Calculate(current, plan.CreditsPerCycle, plan.ExpirationMode, plan.MaxRollover)
	delta := credit.GrantDelta(current, result)

	c.JSON(http.StatusOK, gin.H{
		"user_id":         acct.ID,
		"plan":            plan.Key,
		"current_balance": current,
		"new_balance":     result.NewBalance,
		"expired_amount":  result.ExpiredAmount,
		"delta":           delta,
		"outcome":         credit.ClassifyGrant(delta, plan.CreditsPerCycle, result),
	})
}

func respondError(c *gin.Context, err error) {
	status := ierr.HTTPStatusFromErr(err)
	c.JSON(status, gin.H{"error": ierr.ErrCodeFromErr(err)})
}
