package order

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/beautyhaven/storefront/internal/models"
)

var ErrEmptyCart = errors.New("cart is empty")

const refAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference produces a short human-shareable token, "BH" plus nine
// characters drawn from a 36-symbol alphabet. Uniqueness is
// probabilistic, which is enough for a simulated checkout.
func NewReference() string {
	buf := make([]byte, 9)
	for i := range buf {
		buf[i] = refAlphabet[rand.IntN(len(refAlphabet))]
	}
	return "BH" + string(buf)
}

// Build snapshots the cart lines into an immutable order. The cart
// itself is untouched: clearing it is the caller's decision, taken only
// after the payment simulation reports success.
func Build(lines []models.CartLine, method models.PaymentMethod, details models.PaymentDetails) (models.Order, error) {
	if len(lines) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	items := make([]models.CartLine, len(lines))
	copy(items, lines)

	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}

	return models.Order{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Items:     items,
		Total:     total,
		Method:    method,
		Details:   details,
		Reference: NewReference(),
	}, nil
}
