// internal/handlers/cart.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/services"
	"github.com/javajoker/storefront/internal/utils"
)

const (
	cartViewSummary = "summary"
	cartViewCompact = "compact"
)

type CartHandler struct {
	cartService *services.CartService
	session     *SessionResolver
}

func NewCartHandler(cartService *services.CartService, session *SessionResolver) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		session:     session,
	}
}

// GET /cart
func (h *CartHandler) GetSummary(c *gin.Context) {
	h.show(c, cartViewSummary)
}

// GET /cart/modal
func (h *CartHandler) GetModal(c *gin.Context) {
	h.show(c, cartViewCompact)
}

func (h *CartHandler) show(c *gin.Context, view string) {
	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Get(c.Request.Context(), sessionKey)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"cart": services.NewCartView(view, cart),
	})
}

// GET /cart/count
func (h *CartHandler) GetCount(c *gin.Context) {
	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	count, err := h.cartService.Count(c.Request.Context(), sessionKey)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"total_items": count,
	})
}

// GET /cart/add/:slug
func (h *CartHandler) RedirectToProduct(c *gin.Context) {
	c.Redirect(http.StatusFound, "/v1/products/"+c.Param("slug"))
}

// GET /cart/update/:item_id, /cart/remove/:item_id, /cart/clear
func (h *CartHandler) RedirectToSummary(c *gin.Context) {
	c.Redirect(http.StatusFound, "/v1/cart")
}

// POST /cart/add/:slug
func (h *CartHandler) AddItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AddToCartRequest
	if err := bindOptional(c, &req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	quantity, sizeID := req.Normalize()
	cart, err := h.cartService.Add(c.Request.Context(), sessionKey, c.Param("slug"), sizeID, quantity)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, cart, i18n.KeyCartItemAdded)
}

// POST /cart/update/:item_id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	var req services.UpdateCartItemRequest
	if err := bindOptional(c, &req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartQuantity), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	action, value, err := req.Resolve()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartQuantity), nil)
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	cart, err := h.cartService.SetQuantity(c.Request.Context(), sessionKey, itemID, action, value)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, cart, i18n.KeyCartItemUpdated)
}

// POST /cart/remove/:item_id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := h.itemID(c)
	if !ok {
		return
	}

	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Remove(c.Request.Context(), sessionKey, itemID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, cart, i18n.KeyCartItemRemoved)
}

// POST /cart/clear
func (h *CartHandler) Clear(c *gin.Context) {
	sessionKey, ok := h.session.Resolve(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Clear(c.Request.Context(), sessionKey)
	if err != nil {
		h.handleError(c, err)
		return
	}

	h.respond(c, cart, i18n.KeyCartCleared)
}

func (h *CartHandler) respond(c *gin.Context, cart *models.Cart, messageKey string) {
	lang := utils.GetLangFromContext(c)

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, messageKey),
		"cart":    services.NewCartView(targetView(c), cart),
	})
}

func (h *CartHandler) itemID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		utils.NotFoundResponse(c, i18n.KeyCartItemMissing)
		return uuid.Nil, false
	}
	return id, true
}

func (h *CartHandler) handleError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, services.ErrProductNotFound):
		utils.NotFoundResponse(c, i18n.KeyProduct)
	case errors.Is(err, services.ErrSizeNotFound):
		utils.NotFoundResponse(c, i18n.KeySize)
	case errors.Is(err, services.ErrCartItemNotFound):
		utils.NotFoundResponse(c, i18n.KeyCartItemMissing)
	case errors.Is(err, services.ErrInvalidQuantity):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyCartQuantity), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}

// targetView picks the summary view when the client is refreshing the cart
// page or one of its rows, and the compact widget otherwise.
func targetView(c *gin.Context) string {
	target := c.GetHeader("HX-Target")
	if target == "cart-summary" || strings.HasPrefix(target, "cart-item-") {
		return cartViewSummary
	}
	return cartViewCompact
}

// bindOptional binds JSON or form bodies and accepts an empty body.
func bindOptional(c *gin.Context, obj interface{}) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBind(obj)
}
