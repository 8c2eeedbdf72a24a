// internal/handlers/payment.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

// Stripe keeps webhook payloads well under this size.
const maxWebhookBodyBytes = 65536

type PaymentHandler struct {
	paymentService *services.PaymentService
	session        *SessionResolver
}

func NewPaymentHandler(paymentService *services.PaymentService, session *SessionResolver) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		session:        session,
	}
}

// POST /payment/stripe/webhook
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	err = h.paymentService.HandleNotification(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.Status(http.StatusOK)
	case errors.Is(err, services.ErrInvalidNotification), errors.Is(err, services.ErrOrderNotFound):
		c.Status(http.StatusBadRequest)
	default:
		c.Status(http.StatusInternalServerError)
	}
}

// GET /payment/stripe/success?session_id=
func (h *PaymentHandler) StripeSuccess(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	sessionID := c.Query("session_id")
	if sessionID == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentMissingSession), nil)
		return
	}

	order, err := h.paymentService.CompleteReturn(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, i18n.KeyOrder)
		case errors.Is(err, services.ErrGatewayFailure):
			utils.BadGatewayResponse(c, i18n.T(lang, i18n.KeyPaymentSessionNotFound))
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentSuccess),
		"order":   order,
	})
}

// GET /payment/stripe/cancel?order_id=
func (h *PaymentHandler) StripeCancel(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	rawID := c.Query("order_id")
	if rawID == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentMissingOrder), nil)
		return
	}

	orderID, err := uuid.Parse(rawID)
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyOrder)
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	order, err := h.paymentService.CancelReturn(c.Request.Context(), sessionKey, orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			utils.NotFoundResponse(c, i18n.KeyOrder)
		case errors.Is(err, services.ErrInvalidOrderTransition):
			utils.ConflictResponse(c, "INVALID_ORDER_STATE", i18n.T(lang, i18n.KeyPaymentInvalidState))
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentCanceled),
		"order":   order,
	})
}
