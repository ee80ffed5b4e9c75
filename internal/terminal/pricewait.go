package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/quantrelay/termsync/errs"
	"github.com/quantrelay/termsync/internal/schema"
)

// priceWaiter is one suspended WaitForPrice call. The channel is buffered so
// a fulfilment racing a timeout can never block the event handler.
type priceWaiter struct {
	symbol string
	ch     chan *schema.Price
}

// WaitForPrice returns the combined quote for a symbol, suspending until the
// first tick arrives or the timeout elapses. Multiple callers may wait on the
// same symbol; one tick releases them all, and a timed-out caller is
// deregistered without disturbing the others.
func (s *State) WaitForPrice(ctx context.Context, symbol string, timeout time.Duration) (*schema.Price, error) {
	s.mu.Lock()
	if price, ok := s.combined.prices[symbol]; ok {
		clone := price.Clone()
		s.mu.Unlock()
		return clone, nil
	}
	waiter := &priceWaiter{symbol: symbol, ch: make(chan *schema.Price, 1)}
	s.waiters[symbol] = append(s.waiters[symbol], waiter)
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case price := <-waiter.ch:
		return price, nil
	case <-timer.C:
		s.removeWaiter(waiter)
		return nil, errs.New("terminal/price-wait", errs.CodeTimeout,
			errs.WithMessage("no quote received for "+symbol))
	case <-ctx.Done():
		s.removeWaiter(waiter)
		return nil, fmt.Errorf("wait for price %s: %w", symbol, ctx.Err())
	}
}

// fulfillWaiters releases every waiter registered for the symbol. Callers
// must hold the state lock.
func (s *State) fulfillWaiters(symbol string) {
	waiters, ok := s.waiters[symbol]
	if !ok {
		return
	}
	price := s.combined.prices[symbol]
	if price == nil {
		return
	}
	for _, waiter := range waiters {
		waiter.ch <- price.Clone()
	}
	delete(s.waiters, symbol)
}

// removeWaiter deregisters one waiter, leaving concurrent waiters for the
// same symbol untouched.
func (s *State) removeWaiter(target *priceWaiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waiters[target.symbol]
	for i, waiter := range waiters {
		if waiter == target {
			remaining := append(waiters[:i:i], waiters[i+1:]...)
			if len(remaining) == 0 {
				delete(s.waiters, target.symbol)
			} else {
				s.waiters[target.symbol] = remaining
			}
			return
		}
	}
}
