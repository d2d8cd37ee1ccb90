package service

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/domain"
)

const DefaultPaymentDelay = 2 * time.Second

// PaymentStep runs between order creation and order finalization. A real
// gateway integration replaces FixedDelayPayment without touching checkout.
type PaymentStep interface {
	Pay(ctx context.Context, order domain.Order) error
}

// FixedDelayPayment stands in for payment processing latency. It always
// succeeds and ignores ctx, so the pause can not be cancelled.
type FixedDelayPayment struct {
	Delay time.Duration
}

func (p FixedDelayPayment) Pay(_ context.Context, _ domain.Order) error {
	if p.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	<-t.C
	return nil
}
