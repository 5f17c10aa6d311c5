package httpapi

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// HealthOutput is /health's response body, per spec.md §6: `{ok, ts}` plus
// the supplemented per-provider circuit breaker states.
type HealthOutput struct {
	Body struct {
		OK       bool              `json:"ok"`
		Ts       time.Time         `json:"ts"`
		Breakers map[string]string `json:"breakers,omitempty"`
	}
}

func registerHealthRoutes(api huma.API, deps *Deps) {
	huma.Get(api, "/health", func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.OK = true
		out.Body.Ts = time.Now().UTC()
		out.Body.Breakers = map[string]string{}

		if sr, ok := deps.Fetcher.(stateReporter); ok {
			out.Body.Breakers["fetcher"] = sr.State()
		}
		if deps.AI != nil {
			if sr, ok := deps.AI.(stateReporter); ok {
				out.Body.Breakers[deps.AI.Name()] = sr.State()
			}
		}
		return out, nil
	})
}

// EventsInput is /events' query: an optional job_key filter and a result cap.
type EventsInput struct {
	JobKey string `query:"job_key"`
	Limit  int    `query:"limit" default:"50"`
}

// EventsOutput wraps the recent Event rows in the standard envelope.
type EventsOutput struct {
	Body struct {
		OK   bool  `json:"ok"`
		Data any   `json:"data"`
	}
}

// registerEventsRoute exposes the append-only event log (spec.md §6's
// "Persisted state layout" names the events table; this route is the
// supplemented read path over it, grounded on repository.EventRepository's
// pre-existing ListRecent).
func registerEventsRoute(api huma.API, deps *Deps) {
	huma.Get(api, "/events", func(ctx context.Context, input *EventsInput) (*EventsOutput, error) {
		limit := input.Limit
		if limit <= 0 || limit > 500 {
			limit = 50
		}
		events, err := deps.Repos.Event.ListRecent(ctx, input.JobKey, limit)
		if err != nil {
			return nil, err
		}
		out := &EventsOutput{}
		out.Body.OK = true
		out.Body.Data = events
		return out, nil
	})
}
