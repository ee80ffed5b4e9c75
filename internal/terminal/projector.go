package terminal

import (
	"github.com/shopspring/decimal"

	"github.com/quantrelay/termsync/internal/schema"
)

// applyPrices projects a batch of quote ticks into one snapshot: stale ticks
// are rejected, per-position derived fields and pending-order prices are
// recomputed, and account equity is refreshed. Returns the symbols whose
// price actually advanced.
func applyPrices(sn *snapshot, ticks []*schema.Price, metrics *schema.AccountMetrics) []string {
	var applied []string
	for _, tick := range ticks {
		if tick == nil || tick.Symbol == "" {
			continue
		}
		if existing, ok := sn.prices[tick.Symbol]; ok && !tick.Time.After(existing.Time) {
			continue
		}
		sn.prices[tick.Symbol] = tick.Clone()
		applied = append(applied, tick.Symbol)

		if tick.Time.After(sn.lastQuoteTime) {
			sn.lastQuoteTime = tick.Time
			sn.lastQuoteBrokerTime = tick.BrokerTime
		}

		projectPositions(sn, tick)
		projectOrders(sn, tick)
	}
	// Explicit metrics are stored even when every tick in the batch was
	// stale; a derived equity refresh only makes sense after a price moved.
	if len(applied) > 0 || metrics != nil {
		refreshAccountMetrics(sn, metrics)
	}
	return applied
}

func projectPositions(sn *snapshot, tick *schema.Price) {
	spec := sn.specifications[tick.Symbol]
	mutated := false
	for _, p := range sn.positions {
		if p.Symbol != tick.Symbol {
			continue
		}
		closePrice := tick.Bid
		if p.Side == schema.PositionSideSell {
			closePrice = tick.Ask
		}
		sign := p.Side.Sign()
		profitable := sign*(closePrice-p.OpenPrice) > 0
		tickValue := tick.ProfitTickValue
		if !profitable {
			tickValue = tick.LossTickValue
		}
		if spec != nil && spec.TickSize > 0 {
			unrealized := round(sign*(closePrice-p.OpenPrice)*tickValue*p.Volume/spec.TickSize, spec.Digits)
			if p.RealizedProfit == nil {
				// Derived once from the first observed tick and frozen
				// thereafter; later authoritative profit pushes do not
				// reset it.
				realized := p.Profit - unrealized
				p.RealizedProfit = &realized
			}
			p.UnrealizedProfit = unrealized
			p.Profit = round(unrealized+*p.RealizedProfit, spec.Digits)
		}
		p.CurrentPrice = closePrice
		p.CurrentTickValue = tickValue
		mutated = true
	}
	if mutated {
		sn.positionsHash = nil
	}
}

func projectOrders(sn *snapshot, tick *schema.Price) {
	mutated := false
	for _, o := range sn.orders {
		if o.Symbol != tick.Symbol {
			continue
		}
		if o.Type.IsBuy() {
			o.CurrentPrice = tick.Ask
		} else {
			o.CurrentPrice = tick.Bid
		}
		mutated = true
	}
	if mutated {
		sn.ordersHash = nil
	}
}

// refreshAccountMetrics stores gateway-supplied figures verbatim. Absent an
// explicit equity it derives one from balance and unrealized P&L once every
// referenced symbol has a cached price; a partial price set leaves the
// previous equity untouched.
func refreshAccountMetrics(sn *snapshot, metrics *schema.AccountMetrics) {
	info := sn.accountInformation
	if info == nil {
		return
	}
	explicitEquity := false
	if metrics != nil {
		if metrics.Equity != nil {
			info.Equity = *metrics.Equity
			explicitEquity = true
		}
		if metrics.Margin != nil {
			info.Margin = *metrics.Margin
		}
		if metrics.FreeMargin != nil {
			info.FreeMargin = *metrics.FreeMargin
		}
		if metrics.MarginLevel != nil {
			info.MarginLevel = *metrics.MarginLevel
		}
	}
	if explicitEquity || !sn.positionsInitialized {
		return
	}

	total := info.Balance
	for _, p := range sn.positions {
		if _, ok := sn.prices[p.Symbol]; !ok {
			return
		}
		total += p.UnrealizedProfit
		if info.Platform != "mt5" {
			total += p.Swap + p.Commission
		}
	}
	info.Equity = round(total, 2)
}

func round(value float64, digits int64) float64 {
	return decimal.NewFromFloat(value).Round(int32(digits)).InexactFloat64()
}
