package domain

import "time"

type CheckoutStep string

const (
	CheckoutStepIdle              CheckoutStep = "IDLE"
	CheckoutStepCreatingOrder     CheckoutStep = "CREATING_ORDER"
	CheckoutStepSimulatingPayment CheckoutStep = "SIMULATING_PAYMENT"
	CheckoutStepFinalizingOrder   CheckoutStep = "FINALIZING_ORDER"
	CheckoutStepClearingCart      CheckoutStep = "CLEARING_CART"
	CheckoutStepSuccess           CheckoutStep = "SUCCESS"
	CheckoutStepFailed            CheckoutStep = "FAILED"
)

func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepSuccess || s == CheckoutStepFailed
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}

var checkoutTransitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepIdle:              {CheckoutStepCreatingOrder},
	CheckoutStepCreatingOrder:     {CheckoutStepSimulatingPayment, CheckoutStepFailed},
	CheckoutStepSimulatingPayment: {CheckoutStepFinalizingOrder, CheckoutStepFailed},
	CheckoutStepFinalizingOrder:   {CheckoutStepClearingCart},
	CheckoutStepClearingCart:      {CheckoutStepSuccess},
}

// CanTransitionTo reports whether the linear checkout pipeline allows moving
// from one step to the next. Terminal steps only leave through a reset.
func CanTransitionTo(from, to CheckoutStep) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckoutState is the observable state of one user's checkout. RunID tells
// apart consecutive checkouts so a reset can discard an in-flight result.
type CheckoutState struct {
	RunID     string       `json:"run_id,omitempty"`
	Step      CheckoutStep `json:"step"`
	Order     *Order       `json:"order,omitempty"`
	Lines     []CartLine   `json:"lines"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// IdleCheckoutState is the state before any checkout and after a reset.
func IdleCheckoutState() CheckoutState {
	return CheckoutState{
		Step:  CheckoutStepIdle,
		Lines: []CartLine{},
	}
}
