package hashing

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// encoder abstracts the account-type-specific value formatting quirks. The
// resulting tokens are raw JSON fragments spliced verbatim into the canonical
// document, so both generations produce byte-stable output.
type encoder interface {
	// float renders a floating-point field at 8-decimal precision.
	float(v float64) json.RawMessage
	// integer renders an integer-typed field; exempt fields keep their
	// integer form on both generations.
	integer(v int64, exempt bool) json.RawMessage
	// lessID orders collection ids for deterministic hashing.
	lessID(a, b string) bool
}

type g1Encoder struct{}

func (g1Encoder) float(v float64) json.RawMessage {
	return json.RawMessage(decimal.NewFromFloat(v).StringFixed(8))
}

func (g1Encoder) integer(v int64, exempt bool) json.RawMessage {
	if exempt {
		return json.RawMessage(strconv.FormatInt(v, 10))
	}
	return json.RawMessage(decimal.NewFromInt(v).StringFixed(8))
}

// g1 ticket ids are numeric; ids that fail to parse fall back to
// lexicographic order so the sort stays total.
func (g1Encoder) lessID(a, b string) bool {
	av, aerr := strconv.ParseInt(a, 10, 64)
	bv, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		return av < bv
	}
	return a < b
}

type g2Encoder struct{}

func (g2Encoder) float(v float64) json.RawMessage {
	return json.RawMessage(decimal.NewFromFloat(v).Round(8).String())
}

func (g2Encoder) integer(v int64, _ bool) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(v, 10))
}

func (g2Encoder) lessID(a, b string) bool { return a < b }

func encoderFor(accountType AccountType) encoder {
	if accountType.Normalize() == AccountTypeG1 {
		return g1Encoder{}
	}
	return g2Encoder{}
}

// timestamp renders a UTC ISO-8601 date with millisecond precision and a
// literal Z suffix, identical on both generations.
func timestamp(t time.Time) json.RawMessage {
	return json.RawMessage(strconv.Quote(t.UTC().Format("2006-01-02T15:04:05.000Z")))
}

func str(s string) json.RawMessage {
	quoted, _ := json.Marshal(s)
	return json.RawMessage(quoted)
}
