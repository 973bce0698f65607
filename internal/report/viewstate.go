package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrViewNotFound = errors.New("report: view not found or expired")

// ViewState is the per-view state of a rendered report. RawChartData holds
// the last projected chart input and is read back by exports.
type ViewState struct {
	ID           string       `json:"id"`
	Filters      Filters      `json:"filters"`
	Result       Result       `json:"result"`
	ChartOptions ChartOptions `json:"chart_options"`
	Checked      []int        `json:"checked"`
	RawChartData *ChartData   `json:"raw_chart_data,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewViewState wraps an executed report in a fresh view.
func NewViewState(f Filters, result Result) *ViewState {
	return &ViewState{
		ID:           uuid.NewString(),
		Filters:      f,
		Result:       result,
		ChartOptions: result.Chart,
		Checked:      []int{},
	}
}

// ViewStore persists view state in Redis. Saves overwrite, last writer wins.
type ViewStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewViewStore builds a store whose entries expire after ttl.
func NewViewStore(client *redis.Client, ttl time.Duration) *ViewStore {
	return &ViewStore{client: client, ttl: ttl, now: time.Now}
}

func viewKey(id string) string {
	return "report:view:" + id
}

// Save writes the view and refreshes its expiry.
func (s *ViewStore) Save(ctx context.Context, v *ViewState) error {
	v.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("report: encode view: %w", err)
	}
	return s.client.Set(ctx, viewKey(v.ID), raw, s.ttl).Err()
}

// Load reads a view by id.
func (s *ViewStore) Load(ctx context.Context, id string) (*ViewState, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrViewNotFound
	}
	raw, err := s.client.Get(ctx, viewKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrViewNotFound
	}
	if err != nil {
		return nil, err
	}
	var v ViewState
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("report: decode view %s: %w", id, err)
	}
	return &v, nil
}
