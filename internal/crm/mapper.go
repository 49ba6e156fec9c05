package crm

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultProbability is applied when the backend omits a deal's probability.
const defaultProbability = 50

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp returns the zero time for empty or malformed input.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	log.Debug().Str("value", s).Msg("Unparseable timestamp, treating as missing")
	return time.Time{}
}

// mapDeal converts a backend record into a Deal.
func mapDeal(dto dealDTO) Deal {
	d := Deal{
		ID:          dto.ID,
		Title:       dto.Title,
		Company:     dto.Company,
		Stage:       ParseStage(dto.Stage),
		Probability: defaultProbability,
		CreatedAt:   parseTimestamp(dto.CreatedAt),
	}
	if dto.Value != nil {
		d.Value = *dto.Value
	}
	if dto.Probability != nil {
		d.Probability = *dto.Probability
	}
	if dto.CloseDate != nil {
		if t := parseTimestamp(*dto.CloseDate); !t.IsZero() {
			d.CloseDate = &t
		}
	}
	return d
}

func mapDeals(dtos []dealDTO) []Deal {
	deals := make([]Deal, 0, len(dtos))
	for _, dto := range dtos {
		deals = append(deals, mapDeal(dto))
	}
	return deals
}

// DecodeDeals parses a deals payload in any of the backend's response shapes,
// applying the same defaults as the HTTP client.
func DecodeDeals(body []byte) ([]Deal, error) {
	dtos, err := decodeDeals(body)
	if err != nil {
		return nil, err
	}
	return mapDeals(dtos), nil
}
