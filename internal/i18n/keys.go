// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Cart
	KeyCartEmpty       = "cart.empty"
	KeyCartCleared     = "cart.cleared"
	KeyCartItemAdded   = "cart.item_added"
	KeyCartItemUpdated = "cart.item_updated"
	KeyCartItemRemoved = "cart.item_removed"
	KeyCartItemMissing = "cart_item"
	KeyCartQuantity    = "cart.invalid_quantity"
	KeyCartAction      = "cart.invalid_action"

	// Catalog (used as NotFoundResponse resources)
	KeyProduct = "product"
	KeySize    = "size"
	KeyOrder   = "order"

	// Checkout
	KeyCheckoutEmptyCart    = "checkout.empty_cart"
	KeyCheckoutFormErrors   = "checkout.form_errors"
	KeyCheckoutOrderPlaced  = "checkout.order_placed"
	KeyCheckoutPaymentError = "checkout.payment_error"

	// Payments
	KeyPaymentSuccess         = "payment.success"
	KeyPaymentCanceled        = "payment.canceled"
	KeyPaymentInvalidState    = "payment.invalid_state"
	KeyPaymentMissingSession  = "payment.missing_session"
	KeyPaymentMissingOrder    = "payment.missing_order"
	KeyPaymentSessionNotFound = "payment.session_not_found"

	// Validation
	KeyValidationInvalid = "validation.invalid"
)
