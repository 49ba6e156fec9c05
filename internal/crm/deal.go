package crm

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Stage is a position in the sales pipeline.
type Stage string

const (
	StageLead        Stage = "lead"
	StageQualified   Stage = "qualified"
	StageProposal    Stage = "proposal"
	StageNegotiation Stage = "negotiation"
	StageClosedWon   Stage = "closed_won"
	StageClosedLost  Stage = "closed_lost"
)

// CanonicalStages lists the pipeline stages in display order.
var CanonicalStages = []Stage{
	StageLead,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClosedWon,
	StageClosedLost,
}

// ParseStage normalizes a backend stage string. The backend reports terminal
// stages as "won"/"lost"; both spellings map to the closed_* stages. Unknown
// values are kept verbatim.
func ParseStage(s string) Stage {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "won", "closed_won", "closed-won":
		return StageClosedWon
	case "lost", "closed_lost", "closed-lost":
		return StageClosedLost
	}
	return Stage(v)
}

// IsClosed reports whether the stage is terminal.
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Deal is an open sales opportunity as supplied by the CRM backend.
type Deal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title,omitempty"`
	Company     string     `json:"company,omitempty"`
	Value       float64    `json:"value"`
	Stage       Stage      `json:"stage"`
	Probability float64    `json:"probability"` // percentage, 0-100
	CreatedAt   time.Time  `json:"createdAt"`
	CloseDate   *time.Time `json:"closeDate,omitempty"`
}

// Validate rejects deals whose numbers would corrupt aggregate statistics.
func (d Deal) Validate() error {
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
		return fmt.Errorf("deal %s: value is not finite", d.ID)
	}
	if d.Value < 0 {
		return fmt.Errorf("deal %s: negative value %.2f", d.ID, d.Value)
	}
	if math.IsNaN(d.Probability) || math.IsInf(d.Probability, 0) {
		return fmt.Errorf("deal %s: probability is not finite", d.ID)
	}
	if d.Probability < 0 {
		return fmt.Errorf("deal %s: negative probability %.2f", d.ID, d.Probability)
	}
	return nil
}

// OpenPipeline keeps the deals that can still close inside the horizon:
// not in a terminal stage, and either without a close date or due before
// now+timeframeDays.
func OpenPipeline(deals []Deal, timeframeDays int, now time.Time) []Deal {
	end := now.AddDate(0, 0, timeframeDays)
	open := make([]Deal, 0, len(deals))
	for _, d := range deals {
		if d.Stage.IsClosed() {
			continue
		}
		if d.CloseDate != nil && d.CloseDate.After(end) {
			continue
		}
		open = append(open, d)
	}
	return open
}
