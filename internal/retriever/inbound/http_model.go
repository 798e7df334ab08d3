package inbound

import (
	"net/http"

	"github.com/shandysiswandi/otpbridge/internal/shared/event"
)

type StartResponse struct{}

func (StartResponse) StatusCode() int { return http.StatusAccepted }

func (StartResponse) Message() string { return "SMS listener is starting" }

type StartWaitRequest struct {
	TimeoutMS int64 `json:"timeout_ms"`
}

type StartWaitResponse struct {
	Code string `json:"code"`
}

func (StartWaitResponse) Message() string { return "SMS code received" }

type StopResponse struct{}

func (StopResponse) Message() string { return "SMS listener stopped" }

type StatusResponse struct {
	IsListening  bool `json:"is_listening"`
	IsRegistered bool `json:"is_registered"`
}

type AppHashResponse struct {
	AppHash string `json:"app_hash"`
}

type DeliveryRequest struct {
	ID         string  `json:"id"`
	Message    *string `json:"message"`
	Status     string  `json:"status"`
	StatusCode *int    `json:"status_code"`
}

type DeliveryResponse struct {
	Dispatched bool `json:"dispatched"`
}

func (DeliveryResponse) StatusCode() int { return http.StatusAccepted }

func (DeliveryResponse) Message() string { return "Delivery accepted" }

type SimulateRequest struct {
	Message    *string `json:"message"`
	Status     string  `json:"status"`
	StatusCode *int    `json:"status_code"`
	Code       string  `json:"code"`
}

type SimulateResponse struct {
	ID   string `json:"id"`
	SMS  string `json:"message"`
	Code string `json:"code,omitempty"`
}

func (SimulateResponse) StatusCode() int { return http.StatusAccepted }

func (SimulateResponse) Message() string { return "Simulated SMS published" }

func (r DeliveryRequest) event() event.SMSRetrievedMessage {
	return event.SMSRetrievedMessage{
		ID:         r.ID,
		Message:    r.Message,
		Status:     r.Status,
		StatusCode: r.StatusCode,
	}
}
