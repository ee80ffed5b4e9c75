// Package hashing produces the canonical content digests used to negotiate
// incremental synchronization with the gateway.
package hashing

import (
	"context"
	"strings"
)

// AccountType identifies the trading-bridge generation whose encoding
// conventions apply when hashing terminal state.
type AccountType string

const (
	// AccountTypeG1 selects the legacy bridge conventions.
	AccountTypeG1 AccountType = "g1"
	// AccountTypeG2 selects the modern bridge conventions.
	AccountTypeG2 AccountType = "g2"
)

// Normalize maps gateway account-type spellings such as "cloud-g1" onto the
// canonical constants. Unknown values default to the modern generation.
func (t AccountType) Normalize() AccountType {
	if strings.HasSuffix(string(t), "g1") {
		return AccountTypeG1
	}
	return AccountTypeG2
}

// FieldLists names the fields excluded from hashing per dataset.
type FieldLists struct {
	Specification []string `json:"specification"`
	Position      []string `json:"position"`
	Order         []string `json:"order"`
}

// IgnoredFields is the per-account-type field-exclusion descriptor served by
// the client-configuration endpoint.
type IgnoredFields struct {
	G1 FieldLists `json:"g1"`
	G2 FieldLists `json:"g2"`
}

// For returns the field lists matching the account type.
func (f IgnoredFields) For(accountType AccountType) FieldLists {
	if accountType.Normalize() == AccountTypeG1 {
		return f.G1
	}
	return f.G2
}

// Provider supplies the current ignored-fields descriptor.
type Provider interface {
	IgnoredFields(ctx context.Context) (IgnoredFields, error)
}

// StaticProvider is a Provider returning a fixed descriptor, used when the
// configuration endpoint is unavailable or in tests.
type StaticProvider struct {
	Fields IgnoredFields
}

// IgnoredFields returns the fixed descriptor.
func (p StaticProvider) IgnoredFields(context.Context) (IgnoredFields, error) {
	return p.Fields, nil
}

// Hashes carries the three dataset digests. A nil entry means the dataset is
// not hashable yet per the gating rules (no specifications, or the dataset has
// not finished synchronizing).
type Hashes struct {
	Specifications *string
	Positions      *string
	Orders         *string
}
