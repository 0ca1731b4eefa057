package httpserver

import (
	"github.com/labstack/echo/v4"
)

type Deps struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler

	// Search is nil when Elasticsearch is not configured.
	Search *SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	api := e.Group("/api")

	api.GET("/products", d.Products.GetProducts)
	api.POST("/products/refresh", d.Products.Refresh)
	if d.Search != nil {
		api.GET("/products/search", d.Search.Search)
	}

	api.GET("/cart", d.Cart.GetCart)
	api.POST("/cart/items", d.Cart.AddToCart)
	api.DELETE("/cart/items/:id", d.Cart.RemoveFromCart)
	api.DELETE("/cart", d.Cart.ClearCart)

	api.GET("/checkout", d.Checkout.GetCheckout)
	api.POST("/checkout/mpesa", d.Checkout.PayMpesa)
	api.POST("/checkout/bank", d.Checkout.OpenBank)
	api.POST("/checkout/bank/confirm", d.Checkout.ConfirmBank)
	api.POST("/checkout/reset", d.Checkout.Reset)
}
