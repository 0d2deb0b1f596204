package wakatime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"readme-image/internal/infra/log"

	"go.uber.org/zap"
)

// Range selectors accepted by /users/current/stats/{range}.
const (
	RangeLast7Days    = "last_7_days"
	RangeLast30Days   = "last_30_days"
	RangeLast6Months  = "last_6_months"
	RangeLastYear     = "last_year"
	RangeAllTime      = "all_time"
	DefaultStatsRange = RangeLast7Days
)

// Language is one entry of the languages breakdown.
type Language struct {
	Name         string  `json:"name"`
	Percent      float64 `json:"percent"`
	Text         string  `json:"text"` // human readable duration, e.g. "3 hrs 12 mins"
	TotalSeconds float64 `json:"total_seconds"`
	Digital      string  `json:"digital"`
}

// Stats is the subset of the stats payload we use.
type Stats struct {
	Range              string     `json:"range"`
	HumanReadableTotal string     `json:"human_readable_total"`
	IsUpToDate         bool       `json:"is_up_to_date"`
	Status             string     `json:"status"`
	Languages          []Language `json:"languages"`
}

// StatsResponse wraps Stats the way the API returns it.
type StatsResponse struct {
	Data Stats `json:"data"`
}

// GetMyStats fetches the authenticated user's stats for a range selector.
// Languages come back ordered by usage, highest first.
func (c *Client) GetMyStats(ctx context.Context, statsRange string) (*Stats, error) {
	if statsRange == "" {
		statsRange = DefaultStatsRange
	}

	body, status, err := c.MakeRequest(ctx, "/users/current/stats/"+statsRange)
	if err != nil {
		return nil, fmt.Errorf("failed to get wakatime stats: %w", err)
	}
	log.LogJSON(body, "WakaTime stats response")

	var resp StatsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wakatime stats: %w", err)
	}

	// 202 means the stats are still being calculated; the payload may be partial
	if status == http.StatusAccepted || !resp.Data.IsUpToDate {
		log.LogWarn("WakaTime stats are still being calculated",
			zap.String("range", statsRange),
			zap.String("status", resp.Data.Status))
	}

	return &resp.Data, nil
}

// GetLanguages returns the ordered language breakdown for a range.
func (c *Client) GetLanguages(ctx context.Context, statsRange string) ([]Language, error) {
	stats, err := c.GetMyStats(ctx, statsRange)
	if err != nil {
		return nil, err
	}
	return stats.Languages, nil
}

// RangeLabel turns a range selector into the text shown on the card ("last 7 days").
func RangeLabel(statsRange string) string {
	if statsRange == "" {
		statsRange = DefaultStatsRange
	}
	return strings.ReplaceAll(statsRange, "_", " ")
}
