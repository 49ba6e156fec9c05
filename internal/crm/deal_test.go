package crm

import (
	"math"
	"testing"
	"time"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		in   string
		want Stage
	}{
		{"lead", StageLead},
		{"Negotiation", StageNegotiation},
		{" proposal ", StageProposal},
		{"won", StageClosedWon},
		{"lost", StageClosedLost},
		{"closed_won", StageClosedWon},
		{"closing", Stage("closing")},
	}

	for _, tt := range tests {
		if got := ParseStage(tt.in); got != tt.want {
			t.Errorf("ParseStage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDeal_Validate(t *testing.T) {
	tests := []struct {
		name    string
		deal    Deal
		wantErr bool
	}{
		{"Valid", Deal{ID: "d1", Value: 1000, Probability: 50}, false},
		{"ZeroValue", Deal{ID: "d2", Value: 0, Probability: 0}, false},
		{"NegativeValue", Deal{ID: "d3", Value: -1, Probability: 50}, true},
		{"NaNValue", Deal{ID: "d4", Value: math.NaN(), Probability: 50}, true},
		{"InfValue", Deal{ID: "d5", Value: math.Inf(1), Probability: 50}, true},
		{"NegativeProbability", Deal{ID: "d6", Value: 10, Probability: -5}, true},
		{"NaNProbability", Deal{ID: "d7", Value: 10, Probability: math.NaN()}, true},
		{"ProbabilityAboveHundred", Deal{ID: "d8", Value: 10, Probability: 140}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.deal.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenPipeline(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 10)
	late := now.AddDate(0, 0, 45)

	deals := []Deal{
		{ID: "no-close-date", Stage: StageLead},
		{ID: "closing-soon", Stage: StageProposal, CloseDate: &soon},
		{ID: "closing-late", Stage: StageNegotiation, CloseDate: &late},
		{ID: "won", Stage: StageClosedWon, CloseDate: &soon},
		{ID: "lost", Stage: StageClosedLost},
	}

	got := OpenPipeline(deals, 30, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 open deals, got %d", len(got))
	}
	if got[0].ID != "no-close-date" || got[1].ID != "closing-soon" {
		t.Errorf("unexpected deals kept: %s, %s", got[0].ID, got[1].ID)
	}

	got = OpenPipeline(deals, 60, now)
	if len(got) != 3 {
		t.Errorf("expected 3 open deals for a 60 day horizon, got %d", len(got))
	}
}
