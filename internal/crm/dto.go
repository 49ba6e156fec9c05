package crm

import (
	"encoding/json"
	"fmt"
)

// dealDTO mirrors the backend's deal record.
type dealDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Value       *float64 `json:"value"`
	Stage       string   `json:"stage"`
	Probability *float64 `json:"probability"`
	CreatedAt   string   `json:"createdAt"`
	CloseDate   *string  `json:"closeDate"`
}

// dealsEnvelope covers the paginated and plain response shapes:
// {"data":{"items":[...]}}, {"data":[...]} and {"deals":[...]}.
type dealsEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Deals []dealDTO       `json:"deals"`
}

type pagedItems struct {
	Items []dealDTO `json:"items"`
}

// decodeDeals accepts all response shapes the backend has used, including a
// bare JSON array.
func decodeDeals(body []byte) ([]dealDTO, error) {
	var bare []dealDTO
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}

	var env dealsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode deals response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return env.Deals, nil
	}

	var list []dealDTO
	if err := json.Unmarshal(env.Data, &list); err == nil {
		return list, nil
	}
	var paged pagedItems
	if err := json.Unmarshal(env.Data, &paged); err != nil {
		return nil, fmt.Errorf("unrecognized deals payload: %w", err)
	}
	return paged.Items, nil
}
