package asset

import "strings"

const (
	// Unknown is used for identity fields the classifier could not resolve.
	Unknown = "Unknown"

	// ErrorSentinel is the manufacturer value the classifier returns when the
	// photo does not show something it can recognize.
	ErrorSentinel = "Error"

	DefaultHealthScore = 5
	DefaultBirthYear   = 2020
	DefaultAvgLifespan = 15

	MinHealthScore = 1
	MaxHealthScore = 10
)

// Diagnostics is advisory text attached to a record. Opaque to the core.
type Diagnostics struct {
	PrimaryFaultPrediction string `json:"primary_fault_prediction"`
	DIYFixSteps            string `json:"diy_fix_steps"`
}

// Record is the canonical asset produced by Build.
//
// HealthScore means condition for durables and tenths of remaining supply for
// consumables. AvgLifespan is in years for durables and months for consumables.
type Record struct {
	Manufacturer             string      `json:"manufacturer"`
	ModelNumber              string      `json:"model_number"`
	SerialNumber             string      `json:"serial_number,omitempty"`
	Category                 string      `json:"category,omitempty"`
	IsConsumable             bool        `json:"is_consumable"`
	HealthScore              int         `json:"health_score"`
	BirthYear                int         `json:"birth_year"`
	AvgLifespan              int         `json:"avg_lifespan"`
	EstimatedValue           string      `json:"estimated_value"`
	EstimatedReplacementCost string      `json:"estimated_replacement_cost"`
	ReplaceVsRepair          string      `json:"replace_vs_repair"`
	ModernAlternative        string      `json:"modern_alternative"`
	ReorderLink              string      `json:"reorder_link"`
	MaintenanceAlert         string      `json:"maintenance_alert,omitempty"`
	Diagnostics              Diagnostics `json:"diagnostics"`
}

// Result is either a usable Record or an Invalid marker carrying the reason
// the classifier gave. The zero value is Invalid with no reason.
type Result struct {
	record Record
	valid  bool
	reason string
}

// Valid wraps a usable record.
func Valid(rec Record) Result {
	return Result{record: rec, valid: true}
}

// Invalid returns a result that must never reach a Ledger.
func Invalid(reason string) Result {
	return Result{reason: reason}
}

// Valid reports whether the result holds a usable record.
func (r Result) Valid() bool { return r.valid }

// Record returns the record and true, or the zero Record and false for an
// Invalid result.
func (r Result) Record() (Record, bool) {
	if !r.valid {
		return Record{}, false
	}
	return r.record, true
}

// Reason is the classifier's failure message for Invalid results, possibly empty.
func (r Result) Reason() string { return r.reason }

// reasonKeys are checked in order for a failure message on sentinel results.
var reasonKeys = []string{"error", "message", "reason"}

// Build normalizes a raw classifier mapping. It never fails: missing or
// wrong-typed fields fall back to defaults. A manufacturer equal to
// ErrorSentinel yields an Invalid result.
func Build(raw map[string]any) Result {
	manufacturer := identity(raw["manufacturer"])
	if manufacturer == ErrorSentinel {
		for _, k := range reasonKeys {
			if msg := text(raw[k]); msg != "" {
				return Invalid(msg)
			}
		}
		return Invalid("")
	}

	rec := Record{
		Manufacturer:             manufacturer,
		ModelNumber:              identity(raw["model_number"]),
		SerialNumber:             text(raw["serial_number"]),
		Category:                 text(raw["category"]),
		IsConsumable:             boolOr(raw["is_consumable"], false),
		HealthScore:              healthScore(raw["health_score"]),
		BirthYear:                intOr(raw["birth_year"], DefaultBirthYear),
		AvgLifespan:              intOr(raw["avg_lifespan"], DefaultAvgLifespan),
		EstimatedValue:           text(raw["estimated_value"]),
		EstimatedReplacementCost: text(raw["estimated_replacement_cost"]),
		ReplaceVsRepair:          text(raw["replace_vs_repair"]),
		ModernAlternative:        text(raw["modern_alternative"]),
		ReorderLink:              text(raw["reorder_link"]),
		MaintenanceAlert:         text(raw["maintenance_alert"]),
		Diagnostics:              diagnostics(raw["diagnostics"]),
	}
	return Valid(rec)
}

func identity(v any) string {
	if s := text(v); s != "" {
		return s
	}
	return Unknown
}

func healthScore(v any) int {
	n, ok := toInt(v)
	if !ok {
		return DefaultHealthScore
	}
	return clampInt(n, MinHealthScore, MaxHealthScore)
}

func diagnostics(v any) Diagnostics {
	m, ok := v.(map[string]any)
	if !ok {
		return Diagnostics{}
	}
	return Diagnostics{
		PrimaryFaultPrediction: text(m["primary_fault_prediction"]),
		DIYFixSteps:            steps(m["diy_fix_steps"]),
	}
}

// steps accepts either a single string or a list of strings.
func steps(v any) string {
	list, ok := v.([]any)
	if !ok {
		return text(v)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s := text(item); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
