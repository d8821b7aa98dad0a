package api

import (
	"net/http"

	"emiho-marketplace/internal/middleware"
	"emiho-marketplace/internal/response"

	"github.com/gin-gonic/gin"
)

// CreateSellerAccountRequest represents a payout onboarding request
type CreateSellerAccountRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// CreateSellerAccount connects a seller to a payout account
func (h *Handlers) CreateSellerAccount(c *gin.Context) {
	var req CreateSellerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.UserID != "" && !middleware.ActingAs(c, req.UserID) {
		response.ErrorJSON(c, http.StatusForbidden, "Cannot onboard another user")
		return
	}

	account, err := h.Onboarding.Onboard(c.Request.Context(), req.UserID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"stripeAccountId": account.StripeAccountID,
		"onboardingUrl":   account.OnboardingURL,
	})
}

// LoginLinkRequest names the payout account to open
type LoginLinkRequest struct {
	AccountID string `json:"accountId"`
}

// StripeLoginLink returns a login link to the seller's payout dashboard
func (h *Handlers) StripeLoginLink(c *gin.Context) {
	var req LoginLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	if userID, ok := middleware.CurrentUserID(c); ok && req.AccountID != "" {
		owns, err := h.Onboarding.OwnsAccount(c.Request.Context(), userID, req.AccountID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !owns {
			response.ErrorJSON(c, http.StatusForbidden, "Account does not belong to this user")
			return
		}
	}

	url, err := h.Onboarding.LoginLink(c.Request.Context(), req.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{"url": url})
}
