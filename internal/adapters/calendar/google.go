// Package calendar is the typed client for the Google-style calendar
// provider. All calls require a bearer token from the token manager.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/adapters"
	"github.com/robertdiaspereira/assistencia-tecnica-saas/internal/models"
)

// ErrSlotConflict means the provider reported the requested window taken
// between the availability check and event creation. The flow reacts by
// re-proposing slots.
var ErrSlotConflict = errors.New("calendar slot conflict")

// EventTimeZone is the timezone events are created in.
const EventTimeZone = "America/Sao_Paulo"

// EventSpec describes a calendar event to create.
type EventSpec struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Event is a created calendar event.
type Event struct {
	ID   string `json:"id"`
	Link string `json:"htmlLink"`
}

// Provider is the capability the scheduling flow needs from the calendar.
type Provider interface {
	// QueryBusy returns the busy windows inside the query window.
	QueryBusy(ctx context.Context, calendarID, token string, window models.Slot) ([]models.Slot, error)

	// CreateEvent creates an event. Returns ErrSlotConflict when the
	// provider rejects the window as already taken.
	CreateEvent(ctx context.Context, calendarID, token string, spec EventSpec) (*Event, error)
}

// Client talks to the Google-style calendar API.
type Client struct {
	http *resty.Client
}

// NewClient creates a calendar client.
func NewClient(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(adapters.DefaultCallTimeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: client}
}

// QueryBusy returns the busy windows for a calendar inside the window.
func (c *Client) QueryBusy(ctx context.Context, calendarID, token string, window models.Slot) ([]models.Slot, error) {
	return adapters.Retry(ctx, func() ([]models.Slot, error) {
		var result struct {
			Calendars map[string]struct {
				Busy []struct {
					Start time.Time `json:"start"`
					End   time.Time `json:"end"`
				} `json:"busy"`
			} `json:"calendars"`
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(map[string]any{
				"timeMin": window.Start.Format(time.RFC3339),
				"timeMax": window.End.Format(time.RFC3339),
				"items":   []map[string]string{{"id": calendarID}},
			}).
			SetResult(&result).
			Post("/freeBusy")

		if err != nil {
			if adapters.IsRetryable(err) {
				return nil, err
			}
			return nil, adapters.Permanent(fmt.Errorf("failed to query availability: %w", err))
		}

		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("calendar provider error: %s", resp.Status())
		}
		if !resp.IsSuccess() {
			return nil, adapters.Permanent(fmt.Errorf("calendar provider rejected query: %s", resp.Status()))
		}

		var busy []models.Slot
		for _, cal := range result.Calendars {
			for _, b := range cal.Busy {
				busy = append(busy, models.Slot{Start: b.Start, End: b.End})
			}
		}

		return busy, nil
	})
}

// CreateEvent creates a one-hour service appointment on the tenant's
// calendar. A provider conflict maps to ErrSlotConflict and is not
// retried here; the flow owns re-proposal.
func (c *Client) CreateEvent(ctx context.Context, calendarID, token string, spec EventSpec) (*Event, error) {
	return adapters.Retry(ctx, func() (*Event, error) {
		var event Event
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetBody(map[string]any{
				"summary":     spec.Summary,
				"description": spec.Description,
				"start": map[string]string{
					"dateTime": spec.Start.Format(time.RFC3339),
					"timeZone": EventTimeZone,
				},
				"end": map[string]string{
					"dateTime": spec.End.Format(time.RFC3339),
					"timeZone": EventTimeZone,
				},
			}).
			SetResult(&event).
			Post(fmt.Sprintf("/calendars/%s/events", calendarID))

		if err != nil {
			if adapters.IsRetryable(err) {
				return nil, err
			}
			return nil, adapters.Permanent(fmt.Errorf("failed to create event: %w", err))
		}

		switch {
		case resp.IsSuccess():
			log.Debug().
				Str("calendar_id", calendarID).
				Str("event_id", event.ID).
				Msg("Created calendar event")
			return &event, nil

		case resp.StatusCode() == http.StatusConflict:
			return nil, adapters.Permanent(ErrSlotConflict)

		case resp.StatusCode() >= http.StatusInternalServerError:
			return nil, fmt.Errorf("calendar provider error: %s", resp.Status())

		default:
			return nil, adapters.Permanent(fmt.Errorf("calendar provider rejected event create: %s", resp.Status()))
		}
	})
}
