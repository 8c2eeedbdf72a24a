// internal/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
	cartService     *services.CartService
	session         *SessionResolver
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, cartService *services.CartService, session *SessionResolver) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		cartService:     cartService,
		session:         session,
	}
}

// GET /checkout
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Get(c.Request.Context(), sessionKey)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	if cart.TotalItems <= 0 {
		utils.SuccessResponse(c, gin.H{
			"view":    "empty_cart",
			"message": i18n.T(lang, i18n.KeyCheckoutEmptyCart),
		})
		return
	}

	utils.SuccessResponse(c, gin.H{
		"view":      "form",
		"cart":      services.NewCartView(cartViewSummary, cart),
		"providers": []models.PaymentProvider{models.PaymentProviderStripe, models.PaymentProviderHeleket},
	})
}

// POST /checkout
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	req.Normalize()

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyCheckoutFormErrors), validationErrors)
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), sessionKey, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			utils.ConflictResponse(c, "EMPTY_CART", i18n.T(lang, i18n.KeyCheckoutEmptyCart))
		case errors.Is(err, services.ErrInvalidProvider):
			utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyCheckoutFormErrors), nil)
		case errors.Is(err, services.ErrGatewayFailure):
			utils.BadGatewayResponse(c, i18n.T(lang, i18n.KeyCheckoutPaymentError))
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	if result.RedirectURL != "" {
		c.Header("HX-Redirect", result.RedirectURL)
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyCheckoutOrderPlaced),
		"order":        result.Order,
		"redirect_url": result.RedirectURL,
	})
}

// GET /orders
func (h *CheckoutHandler) GetOrders(c *gin.Context) {
	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.checkoutService.ListOrders(c.Request.Context(), sessionKey, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(orders, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /orders/:id
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyOrder)
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	order, err := h.checkoutService.GetOrder(c.Request.Context(), sessionKey, id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.NotFoundResponse(c, i18n.KeyOrder)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order": order,
	})
}
