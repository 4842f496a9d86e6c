// Package holidays fetches "national day" style daily events from public
// APIs. Sources answer in different JSON shapes; every response is
// normalized into entity.Holiday and the first source with usable data
// wins. Total failure falls back to a built-in calendar so the morning
// announcement always has something to say.
package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"guildsync/entity"
	"guildsync/lib/clock"
	"guildsync/lib/sl"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Source describes one daily-event API. The URL pattern receives the date
// formatted with the source's own layout.
type Source struct {
	Name       string
	URLPattern string
	DateLayout string
}

var defaultSources = []Source{
	{Name: "checkiday", URLPattern: "https://www.checkiday.com/api/3/?d=%s", DateLayout: "2006/01/02"},
	{Name: "nationaltoday", URLPattern: "https://nationaltoday.com/wp-json/nationaltoday/v1/today?date=%s", DateLayout: "2006-01-02"},
}

// priorityKeywords order the day's events by crowd appeal; the first event
// matching the earliest keyword is announced.
var priorityKeywords = []string{
	"pizza", "coffee", "chocolate", "cookie", "ice cream", "taco", "burger",
	"video game", "gaming", "internet", "programmer", "science", "space",
	"music", "movie", "book", "friendship", "kindness", "happiness", "dog", "cat",
}

type Client struct {
	hc      *http.Client
	sources []Source
	log     *slog.Logger
}

func NewClient(logger *slog.Logger, sources ...Source) *Client {
	if len(sources) == 0 {
		sources = defaultSources
	}
	return &Client{
		hc:      &http.Client{Timeout: 10 * time.Second},
		sources: sources,
		log:     logger.With(sl.Module("holidays")),
	}
}

// Today returns the day's pick. Sources are tried in order; a failing or
// empty source is skipped, and when all of them fail the built-in calendar
// answers instead. Never errors: the announcement must always have content.
func (c *Client) Today(ctx context.Context, now time.Time) entity.Holiday {
	for _, src := range c.sources {
		events, err := c.fetch(ctx, src, now)
		if err != nil {
			c.log.Warn("daily event source failed", slog.String("source", src.Name), sl.Err(err))
			continue
		}
		if len(events) == 0 {
			continue
		}
		return pick(events)
	}
	return fallbackFor(now)
}

func (c *Client) fetch(ctx context.Context, src Source, now time.Time) ([]entity.Holiday, error) {
	endpoint := fmt.Sprintf(src.URLPattern, now.Format(src.DateLayout))

	t1 := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned %s", src.Name, resp.Status)
	}

	events, err := normalize(src.Name, body)
	if err != nil {
		return nil, err
	}
	c.log.Debug("daily events fetched",
		slog.String("source", src.Name),
		slog.Int("count", len(events)),
		slog.String("duration", fmt.Sprintf("%.3fms", float64(time.Since(t1))/float64(time.Millisecond))))
	return events, nil
}

// apiEvent carries every field name the known sources use for the same idea.
type apiEvent struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Holiday     string `json:"holiday"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Excerpt     string `json:"excerpt"`
}

func (e apiEvent) normalized(source string) entity.Holiday {
	return entity.Holiday{
		Name:        coalesce(e.Name, e.Title, e.Holiday),
		URL:         coalesce(e.URL, e.Link),
		Description: coalesce(e.Description, e.Excerpt),
		Source:      source,
	}
}

// normalize accepts the three shapes seen in the wild: {"events": [...]},
// {"holidays": [...]} and a bare array.
func normalize(source string, body []byte) ([]entity.Holiday, error) {
	var wrapped struct {
		Events   []apiEvent `json:"events"`
		Holidays []apiEvent `json:"holidays"`
	}
	var items []apiEvent
	if err := json.Unmarshal(body, &wrapped); err == nil && (len(wrapped.Events) > 0 || len(wrapped.Holidays) > 0) {
		items = append(wrapped.Events, wrapped.Holidays...)
	} else {
		var plain []apiEvent
		if err := json.Unmarshal(body, &plain); err != nil {
			return nil, fmt.Errorf("%s: unrecognized response shape", source)
		}
		items = plain
	}

	result := make([]entity.Holiday, 0, len(items))
	for _, item := range items {
		event := item.normalized(source)
		if event.Name == "" {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func pick(events []entity.Holiday) entity.Holiday {
	for _, keyword := range priorityKeywords {
		for _, event := range events {
			if strings.Contains(strings.ToLower(event.Name), keyword) {
				return event
			}
		}
	}
	return events[0]
}

// knownDays covers the classics when every source is down.
var knownDays = map[string]entity.Holiday{
	"01-01": {Name: "New Year's Day", Description: "A fresh start and a brand new chapter."},
	"02-14": {Name: "Valentine's Day", Description: "Tell someone you appreciate them today."},
	"03-14": {Name: "Pi Day", Description: "3.14159 and counting. Grab a slice of something round."},
	"05-04": {Name: "Star Wars Day", Description: "May the Fourth be with you."},
	"10-31": {Name: "Halloween", Description: "Spooky season peaks tonight."},
	"12-25": {Name: "Christmas Day", Description: "Warm wishes to everyone celebrating."},
}

func fallbackFor(now time.Time) entity.Holiday {
	if event, ok := knownDays[clock.MonthDay(now)]; ok {
		event.Source = "builtin"
		return event
	}
	return entity.Holiday{
		Name:        fmt.Sprintf("%s Appreciation Day", now.Weekday()),
		Description: "No listed holiday today, so celebrate the day itself.",
		Source:      "builtin",
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
