package crm

import (
	"testing"
	"time"
)

func TestDecodeDeals_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"BareArray", `[{"id":"a"},{"id":"b"}]`, 2},
		{"DataList", `{"data":[{"id":"a"}]}`, 1},
		{"DataItems", `{"data":{"items":[{"id":"a"},{"id":"b"},{"id":"c"}]}}`, 3},
		{"DealsKey", `{"deals":[{"id":"a"}]}`, 1},
		{"Empty", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dtos, err := decodeDeals([]byte(tt.body))
			if err != nil {
				t.Fatalf("decodeDeals() error = %v", err)
			}
			if len(dtos) != tt.want {
				t.Errorf("decodeDeals() returned %d deals, want %d", len(dtos), tt.want)
			}
		})
	}
}

func TestDecodeDeals_Invalid(t *testing.T) {
	if _, err := decodeDeals([]byte(`not json`)); err == nil {
		t.Error("expected an error for malformed payload")
	}
}

func TestMapDeal_Defaults(t *testing.T) {
	dtos, err := decodeDeals([]byte(`[{"id":"d1","title":"Platform Upgrade","company":"Acme Corp","stage":"Negotiation"}]`))
	if err != nil {
		t.Fatalf("decodeDeals() error = %v", err)
	}

	d := mapDeal(dtos[0])
	if d.Probability != defaultProbability {
		t.Errorf("expected default probability %d, got %v", defaultProbability, d.Probability)
	}
	if d.Value != 0 {
		t.Errorf("expected zero value, got %v", d.Value)
	}
	if d.Stage != StageNegotiation {
		t.Errorf("expected stage negotiation, got %q", d.Stage)
	}
	if !d.CreatedAt.IsZero() {
		t.Errorf("expected missing createdAt to map to zero time, got %v", d.CreatedAt)
	}
	if d.CloseDate != nil {
		t.Errorf("expected nil close date, got %v", d.CloseDate)
	}
}

func TestMapDeal_Timestamps(t *testing.T) {
	dtos, err := decodeDeals([]byte(`[{"id":"d1","value":25000,"probability":70,"stage":"won",
		"createdAt":"2025-01-15T09:30:00.000Z","closeDate":"2025-04-01"}]`))
	if err != nil {
		t.Fatalf("decodeDeals() error = %v", err)
	}

	d := mapDeal(dtos[0])
	wantCreated := time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)
	if !d.CreatedAt.Equal(wantCreated) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, wantCreated)
	}
	if d.CloseDate == nil || !d.CloseDate.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("CloseDate = %v, want 2025-04-01", d.CloseDate)
	}
	if d.Stage != StageClosedWon {
		t.Errorf("expected won to map to closed_won, got %q", d.Stage)
	}
	if d.Value != 25000 || d.Probability != 70 {
		t.Errorf("unexpected value/probability: %v/%v", d.Value, d.Probability)
	}
}

func TestParseTimestamp_Malformed(t *testing.T) {
	if got := parseTimestamp("last tuesday"); !got.IsZero() {
		t.Errorf("expected zero time for malformed input, got %v", got)
	}
}

func TestDecodeDeals(t *testing.T) {
	deals, err := DecodeDeals([]byte(`{"deals":[{"id":"a","value":1000,"stage":"proposal","createdAt":"2025-05-01"}]}`))
	if err != nil {
		t.Fatalf("DecodeDeals() error = %v", err)
	}
	if len(deals) != 1 {
		t.Fatalf("expected 1 deal, got %d", len(deals))
	}
	if deals[0].Probability != defaultProbability || deals[0].Stage != StageProposal {
		t.Errorf("unexpected deal: %+v", deals[0])
	}
	if deals[0].CreatedAt.IsZero() {
		t.Error("expected createdAt to be parsed")
	}

	if _, err := DecodeDeals([]byte(`{"data":"oops"}`)); err == nil {
		t.Error("expected an error for an unrecognized payload")
	}
}
