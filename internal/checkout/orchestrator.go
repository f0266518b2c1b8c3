// Package checkout drives the cart page's checkout form from collection to a placed order.
package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	validatorv10 "github.com/go-playground/validator/v10"

	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

// Phase is the orchestrator state.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseSubmitting Phase = "submitting"
	PhaseCompleted  Phase = "completed"
)

var (
	// ErrOrderPlaced is returned by Submit once an order exists for this mount.
	ErrOrderPlaced = errors.New("order already placed")

	// ErrSubmissionInProgress is returned by Submit while a submission is in flight.
	ErrSubmissionInProgress = errors.New("checkout submission in progress")

	errNoOrder = errors.New("checkout returned no order")
)

// Submitter places orders.
type Submitter interface {
	Checkout(ctx context.Context, form model.CheckoutForm) (*model.CheckoutResponse, error)
}

// Snapshot is the observable state of an Orchestrator.
type Snapshot struct {
	Phase Phase        `json:"phase"`
	Form  Input        `json:"form"`
	Order *model.Order `json:"order,omitempty"`
	Error string       `json:"error,omitempty"`
}

// Orchestrator is the checkout state machine of one cart page mount.
//
// Collecting is the initial phase. A submission moves to Submitting; success
// moves to Completed, which is terminal, and failure returns to Collecting
// with the form kept and the error recorded.
type Orchestrator struct {
	api      Submitter
	validate *validatorv10.Validate
	logger   *slog.Logger

	mu    sync.Mutex
	phase Phase
	form  Input
	years []int
	order *model.Order
	err   string
}

// New creates an orchestrator in the Collecting phase with the default form.
func New(api Submitter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	validate, err := newValidator()
	if err != nil {
		panic(err)
	}
	return &Orchestrator{
		api:      api,
		validate: validate,
		logger:   logger,
		phase:    PhaseCollecting,
		form:     DefaultForm(nil),
	}
}

// SetExpirationYears records the years offered by the cart. If the form has no
// year yet it defaults to the first one.
func (o *Orchestrator) SetExpirationYears(years []int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.years = append([]int(nil), years...)
	if o.form.ExpYear == "" && len(years) > 0 {
		o.form.ExpYear = DefaultForm(years).ExpYear
	}
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{Phase: o.phase, Form: o.form, Order: o.order, Error: o.err}
}

// Submit validates in and places the order. Validation failures never reach
// the network. On success the Order is returned and the orchestrator is done.
func (o *Orchestrator) Submit(ctx context.Context, in Input) (*model.Order, error) {
	o.mu.Lock()
	switch o.phase {
	case PhaseCompleted:
		o.mu.Unlock()
		return nil, ErrOrderPlaced
	case PhaseSubmitting:
		o.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}

	o.form = in
	form, err := Parse(o.validate, in, o.years)
	if err != nil {
		o.err = lifecycle.Message(err)
		o.mu.Unlock()
		return nil, err
	}

	o.phase = PhaseSubmitting
	o.err = ""
	o.mu.Unlock()

	resp, err := o.api.Checkout(ctx, form)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		o.logger.Warn("checkout failed", slog.String("error", err.Error()))
		o.phase = PhaseCollecting
		o.err = lifecycle.Message(err)
		return nil, err
	}

	if resp == nil {
		err = errNoOrder
		o.logger.Warn("checkout failed", slog.String("error", err.Error()))
		o.phase = PhaseCollecting
		o.err = lifecycle.Message(err)
		return nil, err
	}

	o.order = resp.ToOrder()
	o.phase = PhaseCompleted
	o.logger.Info("order placed",
		slog.String("order_id", o.order.OrderID),
		slog.String("shipping_tracking_id", o.order.ShippingTrackingID),
	)
	return o.order, nil
}
