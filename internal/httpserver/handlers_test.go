package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautyhaven/storefront/internal/cart"
	"github.com/beautyhaven/storefront/internal/catalog"
	"github.com/beautyhaven/storefront/internal/models"
	"github.com/beautyhaven/storefront/internal/payment"
)

type memStore struct {
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	return nil
}

type stubOutcome struct {
	success bool
}

func (s stubOutcome) Draw(float64) bool {
	return s.success
}

type testEnv struct {
	E        *echo.Echo
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Svc      *cart.Service
}

func newTestEnv(t *testing.T, paymentSucceeds bool) *testEnv {
	t.Helper()

	cat := catalog.NewCatalog()
	cat.Replace([]models.Product{
		{ID: 1, Name: "Lotion", Brand: "Nivea", Category: "Skincare", Price: 500},
		{ID: 2, Name: "Soap", Brand: "Dove", Category: "Bath", Price: 150},
	})

	svc := cart.NewService(&memStore{data: map[string]string{}})
	checkout := payment.NewCheckout(svc, stubOutcome{success: paymentSucceeds}, payment.Config{
		MpesaSuccessRate: 0.8,
		BankSuccessRate:  0.7,
	})

	return &testEnv{
		E:        echo.New(),
		Cart:     &CartHandler{Svc: svc, Catalog: cat},
		Checkout: &CheckoutHandler{Svc: checkout, Cart: svc},
		Svc:      svc,
	}
}

func (env *testEnv) doJSON(method, target string, body string) (*httptest.ResponseRecorder, echo.Context) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func TestAddToCartHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)

	rec, c := env.doJSON(http.MethodPost, "/api/cart/items", `{"product_id":1}`)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 500.0, resp.Total)
	assert.Equal(t, 1, resp.ItemCount)
}

func TestAddToCartHandler_UnknownProduct(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)

	rec, c := env.doJSON(http.MethodPost, "/api/cart/items", `{"product_id":77}`)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveFromCartHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	ctx := context.Background()
	require.NoError(t, env.Svc.AddItem(ctx, 1, env.Cart.Catalog))
	require.NoError(t, env.Svc.AddItem(ctx, 2, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodDelete, "/api/cart/items/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, env.Cart.RemoveFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].ProductID)
}

func TestClearCartHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	require.NoError(t, env.Svc.AddItem(context.Background(), 1, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodDelete, "/api/cart", "")
	require.NoError(t, env.Cart.ClearCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.ItemCount)
}

func TestGetCheckout_EmptyCartBlocked(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)

	rec, c := env.doJSON(http.MethodGet, "/api/checkout", "")
	require.NoError(t, env.Checkout.GetCheckout(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPayMpesaHandler_Success(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	ctx := context.Background()
	require.NoError(t, env.Svc.AddItem(ctx, 1, env.Cart.Catalog))
	require.NoError(t, env.Svc.AddItem(ctx, 1, env.Cart.Catalog))
	require.NoError(t, env.Svc.AddItem(ctx, 2, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodPost, "/api/checkout/mpesa", `{"phone":"0712345678"}`)
	require.NoError(t, env.Checkout.PayMpesa(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp payment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, payment.StateSucceeded, resp.State)
	assert.NotEmpty(t, resp.OrderReference)
	require.NotNil(t, resp.Order)
	assert.Equal(t, 1150.0, resp.Order.Total)

	assert.Equal(t, 0, env.Svc.ItemCount())
}

func TestPayMpesaHandler_InvalidPhone(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	require.NoError(t, env.Svc.AddItem(context.Background(), 1, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodPost, "/api/checkout/mpesa", `{"phone":"0812345678"}`)
	require.NoError(t, env.Checkout.PayMpesa(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayMpesaHandler_Declined(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	require.NoError(t, env.Svc.AddItem(context.Background(), 1, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodPost, "/api/checkout/mpesa", `{"phone":"0712345678"}`)
	require.NoError(t, env.Checkout.PayMpesa(c))
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	assert.Equal(t, 1, env.Svc.ItemCount(), "declined payment keeps the cart")
}

func TestBankHandlers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	require.NoError(t, env.Svc.AddItem(context.Background(), 1, env.Cart.Catalog))

	rec, c := env.doJSON(http.MethodPost, "/api/checkout/bank", "")
	require.NoError(t, env.Checkout.OpenBank(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var open struct {
		Reference string `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &open))
	assert.NotEmpty(t, open.Reference)

	rec, c = env.doJSON(http.MethodPost, "/api/checkout/bank/confirm", "")
	require.NoError(t, env.Checkout.ConfirmBank(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp payment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, payment.StateSucceeded, resp.State)
	require.NotNil(t, resp.Order)
	assert.Equal(t, open.Reference, resp.Order.Details.Reference)
}

func TestResetHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, false)
	require.NoError(t, env.Svc.AddItem(context.Background(), 1, env.Cart.Catalog))

	_, c := env.doJSON(http.MethodPost, "/api/checkout/bank/confirm", "")
	require.NoError(t, env.Checkout.ConfirmBank(c))

	rec, c := env.doJSON(http.MethodPost, "/api/checkout/reset", "")
	require.NoError(t, env.Checkout.Reset(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetProductsHandler(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, true)
	products := &ProductHandler{Catalog: env.Cart.Catalog}

	rec, c := env.doJSON(http.MethodGet, "/api/products", "")
	require.NoError(t, products.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}
