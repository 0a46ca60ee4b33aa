// Package httpapi exposes the bot's liveness and scheduling state over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"attendance_poll_bot/internal/domain/schedule"
)

// Engine is the read side of the schedule engine the endpoints report on.
type Engine interface {
	Rule() schedule.Rule
	Reservations() []schedule.Reservation
	NextSendDatetime() (time.Time, bool)
}

// Pinger checks a storage backend. Nil means file storage, which is always up.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected *bool  `json:"db_connected,omitempty"`
	NextSendAt  string `json:"next_send_at,omitempty"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(engine Engine, db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		response := HealthResponse{}

		if db != nil {
			connected := db.PingContext(r.Context()) == nil
			response.DBConnected = &connected
			if !connected {
				status = "degraded"
			}
		}
		response.Status = status
		if next, ok := engine.NextSendDatetime(); ok {
			response.NextSendAt = next.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(response)
	}
}

// StatusResponse represents the scheduling status response.
type StatusResponse struct {
	PromptTime         string   `json:"prompt_time"`
	SummaryTime        string   `json:"summary_time"`
	Weekdays           []string `json:"weekdays"`
	SendBeforeHolidays bool     `json:"send_before_holidays"`
	ReservationsCount  int      `json:"reservations_count"`
	Reservations       []string `json:"reservations"`
	NextSendAt         string   `json:"next_send_at,omitempty"`
}

// Status returns a handler that reports the current rule and reservations.
func Status(engine Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rule := engine.Rule()
		reservations := engine.Reservations()

		response := StatusResponse{
			PromptTime:         rule.PromptTime.String(),
			SummaryTime:        rule.SummaryTime.String(),
			Weekdays:           make([]string, 0, len(rule.Weekdays)),
			SendBeforeHolidays: rule.SendBeforeHolidays,
			ReservationsCount:  len(reservations),
			Reservations:       make([]string, 0, len(reservations)),
		}
		for _, wd := range rule.SortedWeekdays() {
			response.Weekdays = append(response.Weekdays, wd.String())
		}
		for _, res := range reservations {
			response.Reservations = append(response.Reservations, res.String())
		}
		if next, ok := engine.NextSendDatetime(); ok {
			response.NextSendAt = next.Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}
