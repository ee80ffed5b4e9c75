package schema

// Specification carries the static per-symbol trading metadata used for P&L math.
type Specification struct {
	Symbol        string  `json:"symbol"`
	Description   string  `json:"description,omitempty"`
	TickSize      float64 `json:"tickSize"`
	Digits        int64   `json:"digits"`
	ContractSize  float64 `json:"contractSize"`
	MinVolume     float64 `json:"minVolume"`
	MaxVolume     float64 `json:"maxVolume"`
	VolumeStep    float64 `json:"volumeStep"`
	BaseCurrency  string  `json:"baseCurrency,omitempty"`
	QuoteCurrency string  `json:"quoteCurrency,omitempty"`
}

// Clone returns a deep copy of the specification.
func (s *Specification) Clone() *Specification {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
