package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/beautyhaven/storefront/internal/catalog"
	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/search"
	"github.com/beautyhaven/storefront/internal/util"
)

type ProductHandler struct {
	Client  *catalog.Client
	Catalog *catalog.Catalog

	// ES is optional; Refresh re-indexes when it is set.
	ES      *elasticsearch.Client
	ESIndex string
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Catalog.Products())
}

// Refresh re-fetches the catalog document. This is the retry affordance
// for a failed fetch.
func (h *ProductHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.refresh")

	products, err := h.Client.Fetch(ctx)
	if err != nil {
		if errors.Is(err, catalog.ErrFetch) {
			l.Warn("catalog fetch failed", "status", 502, "error", err)
			return c.JSON(http.StatusBadGateway, echo.Map{
				"error": "failed to load products, please retry",
			})
		}
		l.Error("catalog refresh failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	h.Catalog.Replace(products)

	if h.ES != nil {
		if err := search.IndexProducts(ctx, h.ES, h.ESIndex, products); err != nil {
			l.Warn("product indexing failed", "error", err)
		}
	}

	l.Info("catalog refreshed", "count", len(products))
	return c.JSON(http.StatusOK, echo.Map{"count": len(products)})
}

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return c.JSON(http.StatusBadRequest, "query required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	ctx := c.Request().Context()
	total, products, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("search failed", "status", 500, "error", err)
		return c.JSON(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
