package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/beautyhaven/storefront/internal/models"
)

// ErrFetch marks any catalog fetch failure: network, bad status or an
// unrecognized document shape. Callers recover by retrying the fetch.
var ErrFetch = errors.New("catalog fetch")

type Client struct {
	HTTP *http.Client
	URL  string
}

func NewClient(url string) *Client {
	return &Client{
		HTTP: &http.Client{Timeout: 10 * time.Second},
		URL:  url,
	}
}

// Fetch downloads the products document. Two shapes are accepted: a bare
// array of products, or an object with a "products" array field.
func (c *Client) Fetch(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, c.URL, res.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: invalid json: %v", ErrFetch, err)
	}

	products, err := decodeProducts(raw)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func decodeProducts(raw json.RawMessage) ([]models.Product, error) {
	var list []models.Product
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Products []models.Product `json:"products"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Products != nil {
		return wrapped.Products, nil
	}

	return nil, fmt.Errorf("%w: invalid products format", ErrFetch)
}

// Catalog is the in-memory view of the last successful fetch.
type Catalog struct {
	mu   sync.RWMutex
	list []models.Product
	byID map[int]models.Product
}

func NewCatalog() *Catalog {
	return &Catalog{byID: make(map[int]models.Product)}
}

func (c *Catalog) Replace(products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.list = make([]models.Product, len(products))
	copy(c.list, products)
	c.byID = make(map[int]models.Product, len(products))
	for _, p := range products {
		c.byID[p.ID] = p
	}
}

func (c *Catalog) Lookup(id int) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.list)
}
