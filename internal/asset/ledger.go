package asset

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"strconv"
)

var (
	// ErrInvalidRecord is returned when an Invalid result is offered to a Ledger.
	ErrInvalidRecord = errors.New("asset: invalid record")

	// ErrDuplicateRecord is returned under RejectDuplicates when an identical
	// record is already stored.
	ErrDuplicateRecord = errors.New("asset: duplicate record")
)

// DedupPolicy controls whether Ledger.Add accepts a record equal to one
// already in the ledger.
type DedupPolicy int

const (
	AllowDuplicates DedupPolicy = iota
	RejectDuplicates
)

// ParseDedupPolicy maps "allow"/"reject" to a policy.
func ParseDedupPolicy(s string) (DedupPolicy, bool) {
	switch s {
	case "allow":
		return AllowDuplicates, true
	case "reject":
		return RejectDuplicates, true
	}
	return AllowDuplicates, false
}

func (p DedupPolicy) String() string {
	if p == RejectDuplicates {
		return "reject"
	}
	return "allow"
}

// Ledger is the ordered list of records for one session. It is not safe for
// concurrent use; the owning session serializes access.
type Ledger struct {
	records []Record
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add appends the record held by res.
func (l *Ledger) Add(res Result, policy DedupPolicy) error {
	rec, ok := res.Record()
	if !ok {
		return ErrInvalidRecord
	}
	if policy == RejectDuplicates && slices.Contains(l.records, rec) {
		return ErrDuplicateRecord
	}
	l.records = append(l.records, rec)
	return nil
}

// Len is the number of stored records.
func (l *Ledger) Len() int { return len(l.records) }

// Records returns a copy of the stored records in insertion order.
func (l *Ledger) Records() []Record {
	return slices.Clone(l.records)
}

// Reset drops every record. Calling it on an empty ledger is a no-op.
func (l *Ledger) Reset() {
	l.records = nil
}

// TotalValue sums EstimatedValue across records using ParseAmount.
func (l *Ledger) TotalValue() int64 {
	return SumValues(l.records)
}

// TotalReplacementCost sums EstimatedReplacementCost across records.
func (l *Ledger) TotalReplacementCost() int64 {
	return SumReplacementCosts(l.records)
}

// SumValues adds the parsed EstimatedValue of every record, saturating at
// math.MaxInt64.
func SumValues(records []Record) int64 {
	var total int64
	for _, rec := range records {
		total = addSaturating(total, ParseAmount(rec.EstimatedValue))
	}
	return total
}

// SumReplacementCosts is SumValues for EstimatedReplacementCost.
func SumReplacementCosts(records []Record) int64 {
	var total int64
	for _, rec := range records {
		total = addSaturating(total, ParseAmount(rec.EstimatedReplacementCost))
	}
	return total
}

// Clone returns an independent copy.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{records: slices.Clone(l.records)}
}

// MarshalJSON encodes the ledger as an array of records.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	if l.records == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.records)
}

// UnmarshalJSON restores a ledger previously encoded with MarshalJSON.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	l.records = records
	return nil
}

// ParseAmount reads a display currency string by keeping only ASCII digits,
// so "$1,200" is 1200 and "$12.50" is 1250. No digits gives 0. Values too
// large for int64 saturate.
func ParseAmount(s string) int64 {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(string(digits), 10, 64)
	if err != nil {
		return math.MaxInt64
	}
	return n
}

func addSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
