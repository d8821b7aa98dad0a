package api

import (
	"net/http"

	"emiho-marketplace/internal/response"
	"emiho-marketplace/internal/services"
	"emiho-marketplace/pkg/logging"

	"github.com/gin-gonic/gin"
)

// CreatePaymentRequest represents a checkout request
type CreatePaymentRequest struct {
	ProductID  string `json:"productId"`
	BuyerEmail string `json:"buyerEmail"`
}

// CreatePayment starts a hosted checkout for a listing
func (h *Handlers) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	session, err := h.Checkout.CreateSession(c.Request.Context(), services.CheckoutRequest{
		ProductID:  req.ProductID,
		BuyerEmail: req.BuyerEmail,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{
		"checkoutUrl": session.CheckoutURL,
		"sessionId":   session.SessionID,
	})
}

// Webhook receives payment confirmation events. The body must be read raw:
// the signature covers the exact bytes sent.
func (h *Handlers) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		logging.Errorf("Failed to read webhook body: %v", err)
		response.ErrorJSON(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	event, err := h.Verifier.Verify(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logging.Errorf("Webhook rejected: %v", err)
		response.Error(c, err)
		return
	}

	outcome, err := h.Reconciler.HandleEvent(c.Request.Context(), event)
	if err != nil {
		response.Error(c, err)
		return
	}

	logging.Infof("Webhook handled - event: %s, type: %s, outcome: %s", event.ID, event.Type, outcome)
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// PurchaseRequest carries the session id from the checkout redirect
type PurchaseRequest struct {
	SessionID string `json:"session_id"`
}

// Purchase shows the buyer what they bought
func (h *Handlers) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	product, err := h.Resolver.Resolve(c.Request.Context(), req.SessionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessJSON(c, gin.H{"product": product})
}
