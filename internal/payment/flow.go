package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/beautyhaven/storefront/internal/cart"
	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/models"
	"github.com/beautyhaven/storefront/internal/order"
)

type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrFlowBusy     = errors.New("payment already in progress")
)

// Kenyan mobile number: optional leading 0, then 7, then 8 digits.
var phonePattern = regexp.MustCompile(`^0?7\d{8}$`)

// OutcomeSource decides whether a simulated payment attempt succeeds.
// The draw happens when the simulated delay resolves, not when the
// attempt starts.
type OutcomeSource interface {
	Draw(probability float64) bool
}

type RandomOutcome struct{}

func (RandomOutcome) Draw(probability float64) bool {
	return rand.Float64() < probability
}

// Recorder receives every successfully paid order. Recorder failures are
// logged and do not fail the checkout: orders are reported, not durable.
type Recorder interface {
	Record(ctx context.Context, o models.Order) error
}

type RecorderFunc func(ctx context.Context, o models.Order) error

func (f RecorderFunc) Record(ctx context.Context, o models.Order) error {
	return f(ctx, o)
}

// Config carries the tunable simulation parameters. The defaults mirror
// the reference behavior but are configuration, not constants.
type Config struct {
	MpesaSuccessRate float64
	BankSuccessRate  float64
	MpesaDelay       time.Duration
	BankDelay        time.Duration
}

func DefaultConfig() Config {
	return Config{
		MpesaSuccessRate: 0.8,
		BankSuccessRate:  0.7,
		MpesaDelay:       2 * time.Second,
		BankDelay:        1500 * time.Millisecond,
	}
}

type flow struct {
	state   State
	message string
}

type Result struct {
	State          State         `json:"state"`
	Message        string        `json:"message"`
	OrderReference string        `json:"order_reference,omitempty"`
	Order          *models.Order `json:"order,omitempty"`

	// stale completions (flow reset while the delay was in flight) carry
	// no side effects and must be ignored by the caller.
	Stale bool `json:"-"`
}

type FlowView struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

type View struct {
	Mpesa         FlowView `json:"mpesa"`
	Bank          FlowView `json:"bank"`
	BankReference string   `json:"bank_reference,omitempty"`
	LastOrderRef  string   `json:"last_order_reference,omitempty"`
}

// Checkout drives the two payment flows. Each flow is a four-state
// machine: Idle -> Pending -> Succeeded | Failed, with Failed retryable
// and Succeeded terminal for the attempt. A flow in Pending rejects a
// second trigger, so rapid repeated confirmation cannot create duplicate
// orders.
type Checkout struct {
	mu        sync.Mutex
	cart      *cart.Service
	outcomes  OutcomeSource
	cfg       Config
	recorders []Recorder

	// sleep stands in for the simulated network delay; tests shortcut it.
	sleep func(time.Duration)

	// epoch increments on Reset; completions carrying an older epoch are
	// discarded instead of mutating the new session.
	epoch uint64

	mpesa        flow
	bank         flow
	bankRef      string
	lastOrderRef string
}

func NewCheckout(cartSvc *cart.Service, outcomes OutcomeSource, cfg Config, recorders ...Recorder) *Checkout {
	return &Checkout{
		cart:      cartSvc,
		outcomes:  outcomes,
		cfg:       cfg,
		recorders: recorders,
		sleep:     time.Sleep,
		mpesa:     flow{state: StateIdle},
		bank:      flow{state: StateIdle},
	}
}

// PayMpesa runs the simulated STK push for the given phone number.
func (c *Checkout) PayMpesa(ctx context.Context, phone string) (Result, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return Result{}, fmt.Errorf("%w: enter a valid Kenyan phone number (07XXXXXXXX)", ErrInvalidPhone)
	}

	epoch, err := c.begin(&c.mpesa, "Sending STK push to "+phone+" ...")
	if err != nil {
		return Result{}, err
	}

	c.sleep(c.cfg.MpesaDelay)
	success := c.outcomes.Draw(c.cfg.MpesaSuccessRate)

	return c.settle(ctx, &c.mpesa, epoch, success,
		models.PaymentMethodMpesa,
		models.PaymentDetails{Phone: phone},
		"Payment successful (simulated).",
		"Payment failed (simulated). Try again.")
}

// OpenBank generates the transfer reference for this checkout session.
// The reference is stable until the session is reset.
func (c *Checkout) OpenBank() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bankRef == "" {
		c.bankRef = order.NewReference()
	}
	return c.bankRef
}

// ConfirmBank runs the simulated incoming-transfer check.
func (c *Checkout) ConfirmBank(ctx context.Context) (Result, error) {
	ref := c.OpenBank()

	epoch, err := c.begin(&c.bank, "Verifying payment (simulated)...")
	if err != nil {
		return Result{}, err
	}

	c.sleep(c.cfg.BankDelay)
	success := c.outcomes.Draw(c.cfg.BankSuccessRate)

	return c.settle(ctx, &c.bank, epoch, success,
		models.PaymentMethodBank,
		models.PaymentDetails{Reference: ref},
		"Payment verified (simulated).",
		"No incoming payment found yet. Please wait or try again later.")
}

// Reset returns both flows to Idle and clears session state. Any delay
// still in flight settles against the old epoch and is discarded.
func (c *Checkout) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.mpesa = flow{state: StateIdle}
	c.bank = flow{state: StateIdle}
	c.bankRef = ""
	c.lastOrderRef = ""
}

func (c *Checkout) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return View{
		Mpesa:         FlowView{State: c.mpesa.state, Message: c.mpesa.message},
		Bank:          FlowView{State: c.bank.state, Message: c.bank.message},
		BankReference: c.bankRef,
		LastOrderRef:  c.lastOrderRef,
	}
}

func (c *Checkout) begin(f *flow, pendingMsg string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if f.state == StatePending {
		return 0, ErrFlowBusy
	}
	if c.cart.ItemCount() == 0 {
		return 0, order.ErrEmptyCart
	}

	f.state = StatePending
	f.message = pendingMsg
	return c.epoch, nil
}

func (c *Checkout) settle(ctx context.Context, f *flow, epoch uint64, success bool,
	method models.PaymentMethod, details models.PaymentDetails, okMsg, failMsg string) (Result, error) {

	c.mu.Lock()

	if c.epoch != epoch {
		c.mu.Unlock()
		return Result{State: StateIdle, Stale: true}, nil
	}

	if !success {
		f.state = StateFailed
		f.message = failMsg
		c.mu.Unlock()
		return Result{State: StateFailed, Message: failMsg}, nil
	}

	o, err := order.Build(c.cart.Lines(), method, details)
	if err != nil {
		f.state = StateFailed
		f.message = "Checkout failed: " + err.Error()
		c.mu.Unlock()
		return Result{State: StateFailed, Message: f.message}, err
	}

	f.state = StateSucceeded
	f.message = okMsg
	c.lastOrderRef = o.Reference
	c.mu.Unlock()

	log := logging.FromContext(ctx)
	for _, r := range c.recorders {
		if err := r.Record(ctx, o); err != nil {
			log.Warn("order recorder failed", "reference", o.Reference, "error", err)
		}
	}
	if err := c.cart.Clear(ctx); err != nil {
		log.Warn("cart clear after payment failed", "error", err)
	}
	log.Info("order placed", "reference", o.Reference, "method", o.Method, "total", o.Total)

	return Result{State: StateSucceeded, Message: okMsg, OrderReference: o.Reference, Order: &o}, nil
}
