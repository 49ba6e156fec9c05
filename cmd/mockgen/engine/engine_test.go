package engine

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"revforecast/internal/crm"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate_Deterministic(t *testing.T) {
	cfg := GeneratorConfig{Scenario: "steady", Count: 40, Seed: 9, Now: now}
	if !reflect.DeepEqual(Generate(cfg), Generate(cfg)) {
		t.Error("same seed produced different pipelines")
	}
}

func TestGenerate_Bounds(t *testing.T) {
	deals := Generate(GeneratorConfig{Scenario: "stale", Count: 200, Seed: 3, Now: now})
	if len(deals) != 200 {
		t.Fatalf("expected 200 deals, got %d", len(deals))
	}

	for _, d := range deals {
		if err := d.Validate(); err != nil {
			t.Fatalf("generated invalid deal: %v", err)
		}
		if d.Stage.IsClosed() {
			t.Errorf("deal %s: closed stage without IncludeClosed", d.ID)
		}
		band := probabilityBands[d.Stage]
		if d.Probability < band[0] || d.Probability > band[1] {
			t.Errorf("deal %s: probability %v outside %v for %s", d.ID, d.Probability, band, d.Stage)
		}
		if age := now.Sub(d.CreatedAt).Hours() / 24; age < 0 || age > 240 {
			t.Errorf("deal %s: age %.1f days out of range", d.ID, age)
		}
		if d.CloseDate == nil || d.CloseDate.Before(now.Add(-time.Second)) || d.CloseDate.After(now.AddDate(0, 0, 120)) {
			t.Errorf("deal %s: close date %v out of range", d.ID, d.CloseDate)
		}
	}
}

func TestGenerate_Whale(t *testing.T) {
	deals := Generate(GeneratorConfig{Scenario: "whale", Count: 10, Seed: 1, Now: now})
	for i := 0; i < 3; i++ {
		if deals[i].Value < 500000 {
			t.Errorf("expected whale deal at %d, got value %v", i, deals[i].Value)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	deals := Generate(GeneratorConfig{Count: 5, Seed: 2, IncludeClosed: true, Now: now})
	path := filepath.Join(t.TempDir(), "out", "deals.json")

	if err := Save(path, deals); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := crm.DecodeDeals(body)
	if err != nil {
		t.Fatalf("DecodeDeals() error = %v", err)
	}
	if len(decoded) != len(deals) {
		t.Fatalf("expected %d deals, got %d", len(deals), len(decoded))
	}
	for i := range deals {
		if decoded[i].ID != deals[i].ID || decoded[i].Value != deals[i].Value || decoded[i].Stage != deals[i].Stage {
			t.Errorf("deal %d changed on round trip: %+v vs %+v", i, decoded[i], deals[i])
		}
		if !decoded[i].CreatedAt.Equal(deals[i].CreatedAt) {
			t.Errorf("deal %d createdAt changed: %v vs %v", i, decoded[i].CreatedAt, deals[i].CreatedAt)
		}
	}
}
