package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beautyhaven/storefront/internal/cart"
	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/models"
	"github.com/beautyhaven/storefront/internal/order"
	"github.com/beautyhaven/storefront/internal/payment"
)

type CheckoutHandler struct {
	Svc  *payment.Checkout
	Cart *cart.Service
}

type checkoutView struct {
	Items     []models.CartLine `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"item_count"`
	Flows     payment.View      `json:"flows"`
}

// GetCheckout returns the checkout summary. An empty cart blocks the
// payment flow with a message, not a crash.
func (h *CheckoutHandler) GetCheckout(c echo.Context) error {
	if h.Cart.ItemCount() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Your cart is empty. Add some products first.",
		})
	}

	return c.JSON(http.StatusOK, checkoutView{
		Items:     h.Cart.Lines(),
		Total:     h.Cart.Total(),
		ItemCount: h.Cart.ItemCount(),
		Flows:     h.Svc.View(),
	})
}

func (h *CheckoutHandler) PayMpesa(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.mpesa")

	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	result, err := h.Svc.PayMpesa(ctx, req.Phone)
	if err != nil {
		return h.paymentError(c, l, err)
	}
	return h.paymentResult(c, result)
}

// OpenBank returns the transfer reference the customer is instructed to
// use for the external transfer.
func (h *CheckoutHandler) OpenBank(c echo.Context) error {
	if h.Cart.ItemCount() == 0 {
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Your cart is empty. Add some products first.",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reference": h.Svc.OpenBank()})
}

func (h *CheckoutHandler) ConfirmBank(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.bank")

	result, err := h.Svc.ConfirmBank(ctx)
	if err != nil {
		return h.paymentError(c, l, err)
	}
	return h.paymentResult(c, result)
}

// Reset reopens the checkout: both flows back to Idle, prior status
// text cleared.
func (h *CheckoutHandler) Reset(c echo.Context) error {
	h.Svc.Reset()
	return c.NoContent(http.StatusNoContent)
}

func (h *CheckoutHandler) paymentResult(c echo.Context, result payment.Result) error {
	if result.Stale {
		return c.NoContent(http.StatusNoContent)
	}
	if result.State == payment.StateFailed {
		return c.JSON(http.StatusPaymentRequired, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *CheckoutHandler) paymentError(c echo.Context, l *slog.Logger, err error) error {
	switch {
	case errors.Is(err, payment.ErrInvalidPhone):
		l.Warn("checkout_validation_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, payment.ErrFlowBusy):
		l.Warn("checkout_busy", "status", 409, "error", err)
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, order.ErrEmptyCart):
		l.Warn("checkout_empty_cart", "status", 409, "error", err)
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Your cart is empty. Add some products first.",
		})
	default:
		l.Warn("checkout_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}
}
