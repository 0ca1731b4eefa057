package order

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautyhaven/storefront/internal/models"
)

func sampleLines() []models.CartLine {
	return []models.CartLine{
		{ProductID: 1, Name: "Lotion", UnitPrice: 500, Quantity: 2},
		{ProductID: 2, Name: "Soap", UnitPrice: 150, Quantity: 1},
	}
}

func TestBuild_EmptyCart(t *testing.T) {
	t.Parallel()

	_, err := Build(nil, models.PaymentMethodMpesa, models.PaymentDetails{})
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = Build([]models.CartLine{}, models.PaymentMethodBank, models.PaymentDetails{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestBuild_SnapshotsCart(t *testing.T) {
	t.Parallel()

	lines := sampleLines()
	o, err := Build(lines, models.PaymentMethodMpesa, models.PaymentDetails{Phone: "0712345678"})
	require.NoError(t, err)

	assert.Equal(t, 1150.0, o.Total)
	assert.Equal(t, models.PaymentMethodMpesa, o.Method)
	assert.Equal(t, "0712345678", o.Details.Phone)
	assert.Len(t, o.Items, 2)
	assert.NotEmpty(t, o.ID)
	assert.False(t, o.CreatedAt.IsZero())

	// mutating the source lines must not reach into the order
	lines[0].Quantity = 99
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, 1150.0, o.Total)
}

func TestBuild_DistinctOrders(t *testing.T) {
	t.Parallel()

	a, err := Build(sampleLines(), models.PaymentMethodBank, models.PaymentDetails{Reference: "BHREF000001"})
	require.NoError(t, err)
	b, err := Build(sampleLines(), models.PaymentMethodBank, models.PaymentDetails{Reference: "BHREF000001"})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Reference, b.Reference)
}

func TestNewReference_Format(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^BH[0-9A-Z]{9}$`)
	for i := 0; i < 100; i++ {
		ref := NewReference()
		assert.Regexp(t, pattern, ref)
	}
}

func TestNewReference_PairwiseDistinct(t *testing.T) {
	t.Parallel()

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref := NewReference()
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s after %d draws", ref, i)
		seen[ref] = struct{}{}
	}
}
