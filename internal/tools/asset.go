package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

// maxLedgerEntries caps ledger_summary output so large inventories don't
// flood the model context.
const maxLedgerEntries = 25

// AssetLifecycle reports the lifecycle and triage band of the asset the
// user is currently troubleshooting.
type AssetLifecycle struct {
	record      asset.Record
	currentYear int
}

func NewAssetLifecycle(rec asset.Record, currentYear int) *AssetLifecycle {
	return &AssetLifecycle{record: rec, currentYear: currentYear}
}

func (a *AssetLifecycle) Name() string { return "asset_lifecycle" }

func (a *AssetLifecycle) Description() string {
	return `Look up the item currently being troubleshot: its age, remaining life (years for durables,
percent of supply for consumables), health score and triage band (CRITICAL, WATCH or STABLE).
Use this before recommending repair or replacement.`
}

func (a *AssetLifecycle) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (a *AssetLifecycle) Execute(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
	lc := asset.Evaluate(a.record, a.currentYear)
	return json.Marshal(map[string]any{
		"manufacturer":       a.record.Manufacturer,
		"model_number":       a.record.ModelNumber,
		"health_score":       a.record.HealthScore,
		"band":               asset.BandFor(a.record.HealthScore),
		"lifecycle":          lc,
		"replace_vs_repair":  a.record.ReplaceVsRepair,
		"modern_alternative": a.record.ModernAlternative,
		"current_year":       a.currentYear,
	})
}

// LedgerSummary reports the user's inventory ordered by urgency.
type LedgerSummary struct {
	records     []asset.Record
	currentYear int
}

func NewLedgerSummary(records []asset.Record, currentYear int) *LedgerSummary {
	return &LedgerSummary{records: records, currentYear: currentYear}
}

func (l *LedgerSummary) Name() string { return "ledger_summary" }

func (l *LedgerSummary) Description() string {
	return `Summarize the user's saved inventory, most urgent first. Optionally filter by band.
Returns item count, total estimated value and per-item band and lifecycle.`
}

func (l *LedgerSummary) Parameters() json.RawMessage {
	return json.RawMessage(`{
        "type": "object",
        "properties": {
            "band": {
                "type": "string",
                "enum": ["CRITICAL", "WATCH", "STABLE"],
                "description": "Only include items in this triage band"
            }
        }
    }`)
}

func (l *LedgerSummary) Execute(_ context.Context, params json.RawMessage) (json.RawMessage, error) {
	var input struct {
		Band string `json:"band,omitempty"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}
	}
	switch asset.Band(input.Band) {
	case "", asset.BandCritical, asset.BandWatch, asset.BandStable:
	default:
		return nil, fmt.Errorf("unknown band %q", input.Band)
	}

	type item struct {
		Manufacturer string          `json:"manufacturer"`
		ModelNumber  string          `json:"model_number"`
		HealthScore  int             `json:"health_score"`
		Band         asset.Band      `json:"band"`
		Lifecycle    asset.Lifecycle `json:"lifecycle"`
	}

	var items []item
	for _, e := range asset.Triage(l.records, l.currentYear) {
		if input.Band != "" && string(e.Band) != input.Band {
			continue
		}
		items = append(items, item{
			Manufacturer: e.Record.Manufacturer,
			ModelNumber:  e.Record.ModelNumber,
			HealthScore:  e.Record.HealthScore,
			Band:         e.Band,
			Lifecycle:    e.Lifecycle,
		})
	}

	matched := len(items)
	truncated := false
	if len(items) > maxLedgerEntries {
		items = items[:maxLedgerEntries]
		truncated = true
	}

	return json.Marshal(map[string]any{
		"item_count":  len(l.records),
		"match_count": matched,
		"total_value": asset.SumValues(l.records),
		"items":       items,
		"truncated":   truncated,
	})
}
