package tools

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

func TestAssetLifecycle_Execute(t *testing.T) {
	t.Parallel()

	rec := asset.Record{
		Manufacturer: "GE",
		ModelNumber:  "WM1",
		HealthScore:  3,
		BirthYear:    2010,
		AvgLifespan:  15,
	}
	tool := NewAssetLifecycle(rec, 2026)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var got struct {
		Band      string          `json:"band"`
		Lifecycle asset.Lifecycle `json:"lifecycle"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Band != "CRITICAL" {
		t.Errorf("band = %q, want CRITICAL", got.Band)
	}
	if got.Lifecycle.Age != 16 {
		t.Errorf("age = %d, want 16", got.Lifecycle.Age)
	}
	if got.Lifecycle.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", got.Lifecycle.Remaining)
	}
}

func TestAssetLifecycle_Schema(t *testing.T) {
	t.Parallel()

	tool := NewAssetLifecycle(asset.Record{}, 2026)
	if tool.Name() != "asset_lifecycle" {
		t.Errorf("Name() = %q", tool.Name())
	}
	if !json.Valid(tool.Parameters()) {
		t.Error("Parameters() is not valid JSON")
	}
}

func ledgerRecords() []asset.Record {
	return []asset.Record{
		{Manufacturer: "Dyson", HealthScore: 9, BirthYear: 2024, AvgLifespan: 8, EstimatedValue: "$300"},
		{Manufacturer: "Brita", HealthScore: 2, IsConsumable: true, AvgLifespan: 2, EstimatedValue: "$20"},
		{Manufacturer: "Carrier", HealthScore: 6, BirthYear: 2014, AvgLifespan: 15, EstimatedValue: "$1,500"},
	}
}

func TestLedgerSummary_OrdersByUrgency(t *testing.T) {
	t.Parallel()

	tool := NewLedgerSummary(ledgerRecords(), 2026)
	out, err := tool.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var got struct {
		ItemCount  int   `json:"item_count"`
		MatchCount int   `json:"match_count"`
		TotalValue int64 `json:"total_value"`
		Items      []struct {
			Manufacturer string `json:"manufacturer"`
			Band         string `json:"band"`
		} `json:"items"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.ItemCount != 3 || got.MatchCount != 3 {
		t.Errorf("counts = %d/%d, want 3/3", got.ItemCount, got.MatchCount)
	}
	if got.TotalValue != 1820 {
		t.Errorf("total_value = %d, want 1820", got.TotalValue)
	}
	want := []string{"Brita", "Carrier", "Dyson"}
	for i, name := range want {
		if got.Items[i].Manufacturer != name {
			t.Errorf("items[%d] = %q, want %q", i, got.Items[i].Manufacturer, name)
		}
	}
}

func TestLedgerSummary_FilterByBand(t *testing.T) {
	t.Parallel()

	tool := NewLedgerSummary(ledgerRecords(), 2026)
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"band":"CRITICAL"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(string(out), `"match_count":1`) {
		t.Errorf("expected one critical match, got %s", out)
	}
	if !strings.Contains(string(out), "Brita") || strings.Contains(string(out), "Dyson") {
		t.Errorf("unexpected filter output: %s", out)
	}
}

func TestLedgerSummary_InvalidParams(t *testing.T) {
	t.Parallel()

	tool := NewLedgerSummary(nil, 2026)

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{bad`)); err == nil {
		t.Error("expected error for malformed params")
	}
	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"band":"URGENT"}`)); err == nil {
		t.Error("expected error for unknown band")
	}
}

func TestLedgerSummary_Truncates(t *testing.T) {
	t.Parallel()

	var records []asset.Record
	for i := 0; i < maxLedgerEntries+5; i++ {
		records = append(records, asset.Record{Manufacturer: "X", HealthScore: 5})
	}

	out, err := NewLedgerSummary(records, 2026).Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var got struct {
		Items     []json.RawMessage `json:"items"`
		Truncated bool              `json:"truncated"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Truncated || len(got.Items) != maxLedgerEntries {
		t.Errorf("truncated=%v items=%d, want true/%d", got.Truncated, len(got.Items), maxLedgerEntries)
	}
}

func TestLedgerSummary_TotalMatchesLedger(t *testing.T) {
	t.Parallel()

	records := []asset.Record{
		{Manufacturer: "A", HealthScore: 5, EstimatedValue: "$99999999999999999999"},
		{Manufacturer: "B", HealthScore: 5, EstimatedValue: "$99999999999999999999"},
	}
	ledger := asset.NewLedger()
	for _, rec := range records {
		if err := ledger.Add(asset.Valid(rec), asset.AllowDuplicates); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	out, err := NewLedgerSummary(ledger.Records(), 2026).Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	var got struct {
		TotalValue int64 `json:"total_value"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.TotalValue != math.MaxInt64 || got.TotalValue != ledger.TotalValue() {
		t.Errorf("total_value = %d, ledger total = %d", got.TotalValue, ledger.TotalValue())
	}
}
