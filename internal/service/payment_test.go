package service

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_storefront/domain"
	"github.com/stretchr/testify/assert"
)

func TestFixedDelayPayment_Waits(t *testing.T) {
	p := FixedDelayPayment{Delay: 30 * time.Millisecond}

	start := time.Now()
	err := p.Pay(context.Background(), domain.Order{ID: "o-1"})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFixedDelayPayment_NotCancellable(t *testing.T) {
	p := FixedDelayPayment{Delay: 30 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Pay(ctx, domain.Order{ID: "o-1"})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestFixedDelayPayment_ZeroDelay(t *testing.T) {
	assert.NoError(t, FixedDelayPayment{}.Pay(context.Background(), domain.Order{}))
}

func TestNewCheckoutService_DefaultPayment(t *testing.T) {
	svc := NewCheckoutService(&MockOrderBackend{}, &MockCartBackend{}, nil)
	assert.Equal(t, FixedDelayPayment{Delay: DefaultPaymentDelay}, svc.payment)

	svc = NewCheckoutService(&MockOrderBackend{}, &MockCartBackend{}, nil, WithPayment(nil))
	assert.Equal(t, FixedDelayPayment{Delay: DefaultPaymentDelay}, svc.payment)
}
