// Package schema defines the terminal-state domain types shared across the SDK.
package schema

// AccountInformation mirrors the broker account metrics streamed by the gateway.
type AccountInformation struct {
	Platform     string  `json:"platform"`
	Broker       string  `json:"broker"`
	Currency     string  `json:"currency"`
	Server       string  `json:"server"`
	Name         string  `json:"name"`
	Login        int64   `json:"login"`
	Balance      float64 `json:"balance"`
	Credit       float64 `json:"credit"`
	Equity       float64 `json:"equity"`
	Margin       float64 `json:"margin"`
	FreeMargin   float64 `json:"freeMargin"`
	MarginLevel  float64 `json:"marginLevel"`
	Leverage     int64   `json:"leverage"`
	MarginMode   string  `json:"marginMode"`
	TradeAllowed bool    `json:"tradeAllowed"`
	InvestorMode bool    `json:"investorMode"`
}

// Clone returns a deep copy of the account information.
func (a *AccountInformation) Clone() *AccountInformation {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// IsHedgingDisabled reports whether the account nets positions per symbol.
func (a *AccountInformation) IsHedgingDisabled() bool {
	return a != nil && a.MarginMode == "ACCOUNT_MARGIN_MODE_RETAIL_NETTING"
}
