package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/quantrelay/termsync/internal/schema"
)

// Engine computes canonical MD5 digests over deep-copied, filtered snapshot
// collections. Digest computation is read-only and safe to run concurrently.
type Engine struct {
	digest func([]byte) string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDigest overrides the digest function, primarily for testing.
func WithDigest(digest func([]byte) string) EngineOption {
	return func(e *Engine) {
		if digest != nil {
			e.digest = digest
		}
	}
}

// NewEngine constructs an Engine with an MD5 digest.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{digest: md5Hex}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

type document map[string]json.RawMessage

// SpecificationsDigest hashes the specification table sorted by symbol.
func (e *Engine) SpecificationsDigest(accountType AccountType, specs []*schema.Specification, ignored []string) (string, error) {
	enc := encoderFor(accountType)
	sorted := make([]*schema.Specification, 0, len(specs))
	for _, s := range specs {
		if s != nil {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })

	docs := make([]document, 0, len(sorted))
	for _, s := range sorted {
		docs = append(docs, specificationDocument(enc, s, exclusionSet(ignored)))
	}
	return e.serialize(docs)
}

// PositionsDigest hashes open positions sorted by ticket id.
func (e *Engine) PositionsDigest(accountType AccountType, positions []*schema.Position, ignored []string) (string, error) {
	enc := encoderFor(accountType)
	sorted := make([]*schema.Position, 0, len(positions))
	for _, p := range positions {
		if p != nil {
			sorted = append(sorted, p)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return enc.lessID(sorted[i].ID, sorted[j].ID) })

	docs := make([]document, 0, len(sorted))
	for _, p := range sorted {
		docs = append(docs, positionDocument(enc, p, exclusionSet(ignored)))
	}
	return e.serialize(docs)
}

// OrdersDigest hashes pending orders sorted by ticket id.
func (e *Engine) OrdersDigest(accountType AccountType, orders []*schema.Order, ignored []string) (string, error) {
	enc := encoderFor(accountType)
	sorted := make([]*schema.Order, 0, len(orders))
	for _, o := range orders {
		if o != nil {
			sorted = append(sorted, o)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return enc.lessID(sorted[i].ID, sorted[j].ID) })

	docs := make([]document, 0, len(sorted))
	for _, o := range sorted {
		docs = append(docs, orderDocument(enc, o, exclusionSet(ignored)))
	}
	return e.serialize(docs)
}

// serialize renders documents as compact JSON with keys in sorted order and
// digests the UTF-8 bytes. The server computes the same bytes independently,
// so nothing here may depend on map iteration order.
func (e *Engine) serialize(docs []document) (string, error) {
	data, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("serialize canonical document: %w", err)
	}
	return e.digest(data), nil
}

func exclusionSet(fields []string) map[string]struct{} {
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func excluded(set map[string]struct{}, field string) bool {
	if set == nil {
		return false
	}
	_, ok := set[field]
	return ok
}

func specificationDocument(enc encoder, s *schema.Specification, skip map[string]struct{}) document {
	doc := make(document, 10)
	put := func(field string, value json.RawMessage) {
		if !excluded(skip, field) {
			doc[field] = value
		}
	}
	put("symbol", str(s.Symbol))
	if s.Description != "" {
		put("description", str(s.Description))
	}
	put("tickSize", enc.float(s.TickSize))
	// digits stays integer-typed even on g1
	put("digits", enc.integer(s.Digits, true))
	put("contractSize", enc.float(s.ContractSize))
	put("minVolume", enc.float(s.MinVolume))
	put("maxVolume", enc.float(s.MaxVolume))
	put("volumeStep", enc.float(s.VolumeStep))
	if s.BaseCurrency != "" {
		put("baseCurrency", str(s.BaseCurrency))
	}
	if s.QuoteCurrency != "" {
		put("quoteCurrency", str(s.QuoteCurrency))
	}
	return doc
}

func positionDocument(enc encoder, p *schema.Position, skip map[string]struct{}) document {
	doc := make(document, 16)
	put := func(field string, value json.RawMessage) {
		if !excluded(skip, field) {
			doc[field] = value
		}
	}
	put("id", str(p.ID))
	put("type", str(string(p.Side)))
	put("symbol", str(p.Symbol))
	// magic stays integer-typed even on g1
	put("magic", enc.integer(p.Magic, true))
	if !p.Time.IsZero() {
		put("time", timestamp(p.Time))
	}
	if !p.UpdateTime.IsZero() {
		put("updateTime", timestamp(p.UpdateTime))
	}
	put("openPrice", enc.float(p.OpenPrice))
	put("volume", enc.float(p.Volume))
	put("swap", enc.float(p.Swap))
	put("commission", enc.float(p.Commission))
	put("profit", enc.float(p.Profit))
	if p.RealizedProfit != nil {
		put("realizedProfit", enc.float(*p.RealizedProfit))
	}
	put("unrealizedProfit", enc.float(p.UnrealizedProfit))
	put("currentPrice", enc.float(p.CurrentPrice))
	put("currentTickValue", enc.float(p.CurrentTickValue))
	if p.Comment != "" {
		put("comment", str(p.Comment))
	}
	if p.ClientID != "" {
		put("clientId", str(p.ClientID))
	}
	return doc
}

func orderDocument(enc encoder, o *schema.Order, skip map[string]struct{}) document {
	doc := make(document, 12)
	put := func(field string, value json.RawMessage) {
		if !excluded(skip, field) {
			doc[field] = value
		}
	}
	put("id", str(o.ID))
	put("type", str(string(o.Type)))
	if o.State != "" {
		put("state", str(o.State))
	}
	put("symbol", str(o.Symbol))
	put("magic", enc.integer(o.Magic, true))
	if !o.Time.IsZero() {
		put("time", timestamp(o.Time))
	}
	put("openPrice", enc.float(o.OpenPrice))
	put("volume", enc.float(o.Volume))
	put("currentVolume", enc.float(o.CurrentVolume))
	put("currentPrice", enc.float(o.CurrentPrice))
	if o.Comment != "" {
		put("comment", str(o.Comment))
	}
	if o.ClientID != "" {
		put("clientId", str(o.ClientID))
	}
	return doc
}
