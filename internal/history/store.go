package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"revforecast/internal/simulation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// accurateThreshold is the error percentage below which a forecast
	// counts as accurate.
	accurateThreshold = 15.0

	historyFile = "forecasts.jsonl"
)

var (
	// ErrNotFound is returned for an unknown forecast id.
	ErrNotFound = errors.New("forecast not found")

	// ErrInvalidActual is returned for a negative or non-finite actual revenue.
	ErrInvalidActual = errors.New("actual revenue must be a finite, non-negative number")
)

// Record is a stored forecast plus its resolution, once known.
type Record struct {
	ID               string              `json:"id"`
	WorkspaceID      string              `json:"workspace_id"`
	Scenario         simulation.Scenario `json:"scenario"`
	TimeframeDays    int                 `json:"timeframe_days"`
	PredictedRevenue float64             `json:"predicted_revenue"`
	BestCase         float64             `json:"best_case"`
	LikelyCase       float64             `json:"likely_case"`
	WorstCase        float64             `json:"worst_case"`
	Confidence       float64             `json:"confidence"`
	DealsAnalyzed    int                 `json:"deals_analyzed"`
	CreatedAt        time.Time           `json:"created_at"`

	ActualRevenue *float64   `json:"actual_revenue,omitempty"`
	AccuracyScore *float64   `json:"accuracy_score,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// Accuracy compares a stored prediction with the realised revenue.
type Accuracy struct {
	ForecastID      string  `json:"forecast_id"`
	Predicted       float64 `json:"predicted"`
	Actual          float64 `json:"actual"`
	ErrorAmount     float64 `json:"error_amount"`
	ErrorPercentage float64 `json:"error_percentage"`
	AccuracyScore   float64 `json:"accuracy_score"`
	WasAccurate     bool    `json:"was_accurate"`
}

// Store keeps forecast records in memory and, when given a directory,
// mirrors them to a JSONL file after every mutation.
type Store struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int

	saveMu sync.Mutex
	dir    string
	now    func() time.Time
}

// NewStore creates an empty store. An empty dir keeps it memory-only.
func NewStore(dir string) *Store {
	return &Store{
		index: make(map[string]int),
		dir:   dir,
		now:   time.Now,
	}
}

// Open creates a store backed by dir and loads any existing history.
func Open(dir string) (*Store, error) {
	s := NewStore(dir)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Add stores a new forecast for the workspace and returns the record.
func (s *Store) Add(workspaceID string, res simulation.Result) (Record, error) {
	rec := Record{
		ID:               uuid.NewString(),
		WorkspaceID:      workspaceID,
		Scenario:         res.Scenario,
		TimeframeDays:    res.TimeframeDays,
		PredictedRevenue: res.PredictedRevenue,
		BestCase:         res.BestCase,
		LikelyCase:       res.LikelyCase,
		WorstCase:        res.WorstCase,
		Confidence:       res.Confidence,
		DealsAnalyzed:    res.DealsAnalyzed,
		CreatedAt:        res.GeneratedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	s.index[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if err := s.Save(); err != nil {
		return rec, err
	}
	return rec, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.records[i], nil
}

// List returns the workspace's records, newest first. An empty workspace
// lists everything.
func (s *Store) List(workspaceID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if workspaceID == "" || s.records[i].WorkspaceID == workspaceID {
			out = append(out, s.records[i])
		}
	}
	return out
}

// TrackAccuracy resolves a forecast against the revenue that actually closed.
func (s *Store) TrackAccuracy(id string, actual float64) (Accuracy, error) {
	if math.IsNaN(actual) || math.IsInf(actual, 0) || actual < 0 {
		return Accuracy{}, ErrInvalidActual
	}

	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return Accuracy{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec := &s.records[i]
	acc := Evaluate(rec.PredictedRevenue, actual)
	acc.ForecastID = id

	resolved := s.now().UTC()
	rec.ActualRevenue = &actual
	rec.AccuracyScore = &acc.AccuracyScore
	rec.ResolvedAt = &resolved
	s.mu.Unlock()

	log.Info().
		Str("forecast", id).
		Float64("predicted", acc.Predicted).
		Float64("actual", actual).
		Float64("error_pct", acc.ErrorPercentage).
		Msg("Forecast resolved")

	if err := s.Save(); err != nil {
		return acc, err
	}
	return acc, nil
}

// Evaluate scores a prediction against the actual outcome. A zero actual
// yields a zero error percentage.
func Evaluate(predicted, actual float64) Accuracy {
	errAmount := math.Abs(predicted - actual)
	errPct := 0.0
	if actual > 0 {
		errPct = errAmount / actual * 100
	}
	return Accuracy{
		Predicted:       predicted,
		Actual:          actual,
		ErrorAmount:     errAmount,
		ErrorPercentage: errPct,
		AccuracyScore:   max(0, 100-errPct),
		WasAccurate:     errPct < accurateThreshold,
	}
}

// Load reads the JSONL history file, if any.
func (s *Store) Load() error {
	if s.dir == "" {
		return nil
	}
	path := filepath.Join(s.dir, historyFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer file.Close()

	var loaded []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping invalid JSON line in history")
			continue
		}
		if r.ID == "" {
			continue
		}
		loaded = append(loaded, r)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading history: %w", err)
	}

	slices.SortStableFunc(loaded, func(a, b Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	s.mu.Lock()
	for _, r := range loaded {
		if i, ok := s.index[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.index[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	s.mu.Unlock()

	log.Info().Str("path", path).Int("count", len(loaded)).Msg("Loaded forecast history")
	return nil
}

// Save writes the whole history to disk via a temp file and rename.
func (s *Store) Save() error {
	if s.dir == "" {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	snapshot := slices.Clone(s.records)
	s.mu.RUnlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	path := filepath.Join(s.dir, historyFile)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp history file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, r := range snapshot {
		if err := encoder.Encode(r); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode forecast %s: %w", r.ID, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename history file: %w", err)
	}

	log.Debug().Str("path", path).Int("count", len(snapshot)).Msg("Forecast history saved")
	return nil
}
