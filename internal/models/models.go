package models

import "time"

// Product is a read-only catalog entry, sourced from the external
// products document. Identity is the numeric ID.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

// CartLine is one product's accumulated quantity in the active cart.
// UnitPrice is snapshotted at add time, so later catalog price changes
// do not alter an existing line.
type CartLine struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

func (l CartLine) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

type PaymentMethod string

const (
	PaymentMethodMpesa PaymentMethod = "mpesa"
	PaymentMethodBank  PaymentMethod = "bank"
)

// PaymentDetails carries the method-specific data attached to an order:
// the payer phone for mpesa, the transfer reference for bank.
type PaymentDetails struct {
	Phone     string `json:"phone,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// Order is an immutable record of a completed (simulated) purchase.
// It is created once per successful payment and never mutated.
type Order struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Items     []CartLine     `json:"items"`
	Total     float64        `json:"total"`
	Method    PaymentMethod  `json:"method"`
	Details   PaymentDetails `json:"details"`
	Reference string         `json:"reference"`
}
