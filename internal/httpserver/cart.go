package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/beautyhaven/storefront/internal/cart"
	"github.com/beautyhaven/storefront/internal/catalog"
	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/models"
)

type CartHandler struct {
	Svc     *cart.Service
	Catalog *catalog.Catalog
}

type cartView struct {
	Items     []models.CartLine `json:"items"`
	Total     float64           `json:"total"`
	ItemCount int               `json:"item_count"`
}

func (h *CartHandler) view() cartView {
	return cartView{
		Items:     h.Svc.Lines(),
		Total:     h.Svc.Total(),
		ItemCount: h.Svc.ItemCount(),
	}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	return c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		ProductID int `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, "invalid body")
	}

	if err := h.Svc.AddItem(ctx, req.ProductID, h.Catalog); err != nil {
		if errors.Is(err, cart.ErrProductNotFound) {
			l.Warn("add_to_cart_not_found", "status", 404, "product_id", req.ProductID)
			return c.JSON(http.StatusNotFound, "product not found")
		}
		l.Error("add_to_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("item added to cart", "product_id", req.ProductID)
	return c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, "invalid product id")
	}

	if err := h.Svc.RemoveItem(ctx, id); err != nil {
		l.Error("remove_from_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	if err := h.Svc.Clear(ctx); err != nil {
		l.Error("clear_cart_error", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	l.Info("cart cleared")
	return c.JSON(http.StatusOK, h.view())
}
