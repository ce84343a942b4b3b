package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/style"
)

var restTimeout = time.Second * 15

// RESTClient is the bearer-token authenticated pull API client used by the
// slow path: single states, full snapshots, history, calendars and forecasts.
type RESTClient struct {
	baseURL *url.URL
	token   string

	client *http.Client

	pr *log.Logger
}

// NewRESTClient creates a pull API client for the given hub.
func NewRESTClient(rawURL string, token string) (*RESTClient, error) {
	if rawURL == "" {
		return nil, models.ErrEmptyURL
	} else if token == "" {
		return nil, models.ErrEmptyToken
	}

	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: restTimeout},
		pr:      models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.HABlue).Render("REST")),
	}, nil
}

func (rc *RESTClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	return rc.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (rc *RESTClient) doJSON(ctx context.Context, method string, path string, query url.Values, body any, out any) error {
	target := rc.baseURL.JoinPath(path)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+rc.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s %s: %s", models.ErrUnexpectedStatus, method, path, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// GetState fetches a single entity state.
func (rc *RESTClient) GetState(ctx context.Context, entityID EntityID) (*State, error) {
	var state State

	if err := rc.getJSON(ctx, "/api/states/"+entityID.ID, nil, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// GetStates fetches the full state snapshot.
func (rc *RESTClient) GetStates(ctx context.Context) ([]*State, error) {
	var states []*State

	if err := rc.getJSON(ctx, "/api/states", nil, &states); err != nil {
		return nil, err
	}

	return states, nil
}

// HistoryEntry is one historical state sample.
type HistoryEntry struct {
	EntityID    EntityID   `json:"entity_id"`
	State       string     `json:"state"`
	LastChanged time.Time  `json:"last_changed"`
	Attributes  Attributes `json:"attributes"`
}

// GetHistory fetches historical states for the given entities, one series
// per entity in request order.
func (rc *RESTClient) GetHistory(ctx context.Context, entityIDs []EntityID, start, end time.Time) ([][]HistoryEntry, error) {
	ids := make([]string, 0, len(entityIDs))
	for _, entityID := range entityIDs {
		ids = append(ids, entityID.ID)
	}

	query := url.Values{}
	query.Set("filter_entity_id", strings.Join(ids, ","))
	if !end.IsZero() {
		query.Set("end_time", end.Format(time.RFC3339))
	}

	var history [][]HistoryEntry

	path := "/api/history/period/" + start.Format(time.RFC3339)
	if err := rc.getJSON(ctx, path, query, &history); err != nil {
		return nil, err
	}

	return history, nil
}

// CalendarDate is either a zoned timestamp or a whole-day date.
type CalendarDate struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Time resolves the date, reporting whether it is a whole-day value.
func (cd CalendarDate) Time() (time.Time, bool) {
	if cd.DateTime != "" {
		parsed, _ := time.Parse(time.RFC3339, cd.DateTime)

		return parsed, false
	}

	parsed, _ := time.Parse("2006-01-02", cd.Date)

	return parsed, true
}

// CalendarEvent is one event in a calendar entity's window.
type CalendarEvent struct {
	Summary     string       `json:"summary"`
	Start       CalendarDate `json:"start"`
	End         CalendarDate `json:"end"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
}

// GetCalendar fetches the events of one calendar entity in [start, end).
func (rc *RESTClient) GetCalendar(ctx context.Context, entityID EntityID, start, end time.Time) ([]CalendarEvent, error) {
	query := url.Values{}
	query.Set("start", start.Format(time.RFC3339))
	query.Set("end", end.Format(time.RFC3339))

	var events []CalendarEvent

	if err := rc.getJSON(ctx, "/api/calendars/"+entityID.ID, query, &events); err != nil {
		return nil, err
	}

	return events, nil
}

// ForecastDay is one day of a weather entity's daily forecast.
type ForecastDay struct {
	DateTime                 string   `json:"datetime"`
	Condition                string   `json:"condition"`
	Temperature              float64  `json:"temperature"`
	TempLow                  float64  `json:"templow"`
	Precipitation            float64  `json:"precipitation"`
	PrecipitationProbability *float64 `json:"precipitation_probability,omitempty"`
}

// GetForecast fetches the daily forecast of a weather entity via the
// weather.get_forecasts service.
func (rc *RESTClient) GetForecast(ctx context.Context, entityID EntityID) ([]ForecastDay, error) {
	body := map[string]any{
		"entity_id": entityID.ID,
		"type":      "daily",
	}

	query := url.Values{}
	query.Set("return_response", "")

	// service response: {"service_response": {"<entity>": {"forecast": [...]}}}
	var response struct {
		ServiceResponse map[string]struct {
			Forecast []ForecastDay `json:"forecast"`
		} `json:"service_response"`
	}

	if err := rc.doJSON(ctx, http.MethodPost, "/api/services/weather/get_forecasts", query, body, &response); err != nil {
		return nil, err
	}

	entry, ok := response.ServiceResponse[entityID.ID]
	if !ok {
		return nil, fmt.Errorf("%w: no forecast for %s", models.ErrUnexpectedMessageType, entityID.ID)
	}

	return entry.Forecast, nil
}
