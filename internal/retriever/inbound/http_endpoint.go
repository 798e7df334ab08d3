package inbound

import (
	"time"

	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/goerror"
	"github.com/shandysiswandi/otpbridge/internal/pkg/router"
	"github.com/shandysiswandi/otpbridge/internal/retriever/usecase"
)

// HTTPEndpoint exposes the listener session over HTTP.
type HTTPEndpoint struct {
	uc     uc
	cfg    config.Config
	intake *Intake
}

// Start begins listening and returns immediately.
func (h *HTTPEndpoint) Start(r *router.Request) (any, error) {
	h.uc.StartListener(r.Context())
	return StartResponse{}, nil
}

// StartWait begins listening, or joins the active listener, and holds the
// request until a code arrives or the episode fails. A zero timeout_ms uses
// the configured default.
func (h *HTTPEndpoint) StartWait(r *router.Request) (any, error) {
	var req StartWaitRequest
	if err := r.DecodeBody(&req, true); err != nil {
		return nil, err
	}
	if req.TimeoutMS < 0 {
		return nil, goerror.NewInvalidInput(nil, "timeout_ms", "timeout_ms must not be negative")
	}

	timeout := time.Duration(req.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = h.cfg.GetMillisecond("modules.retriever.wait_timeout_ms")
	}

	code, err := h.uc.StartListenerWithTimeout(r.Context(), timeout)
	if err != nil {
		return nil, err
	}

	return StartWaitResponse{Code: code}, nil
}

func (h *HTTPEndpoint) Stop(r *router.Request) (any, error) {
	h.uc.StopListener(r.Context())
	return StopResponse{}, nil
}

func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	st := h.uc.GetStatus(r.Context())
	return StatusResponse{IsListening: st.IsListening, IsRegistered: st.IsRegistered}, nil
}

func (h *HTTPEndpoint) AppHash(r *router.Request) (any, error) {
	hash, err := h.uc.GetAppHash(r.Context())
	if err != nil {
		return nil, err
	}

	return AppHashResponse{AppHash: hash}, nil
}

// Deliver is the direct-callback transport: the device agent posts the same
// payload it would otherwise publish to the broker.
func (h *HTTPEndpoint) Deliver(r *router.Request) (any, error) {
	var req DeliveryRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	dispatched, err := h.intake.accept(r.Context(), req.ID, toDelivery(req.event()))
	if err != nil {
		return nil, goerror.NewServer(err)
	}

	return DeliveryResponse{Dispatched: dispatched}, nil
}

func (h *HTTPEndpoint) Simulate(r *router.Request) (any, error) {
	var req SimulateRequest
	if err := r.DecodeBody(&req, true); err != nil {
		return nil, err
	}

	out, err := h.uc.Simulate(r.Context(), usecase.SimulateInput{
		Message:    req.Message,
		Status:     req.Status,
		StatusCode: req.StatusCode,
		Code:       req.Code,
	})
	if err != nil {
		return nil, err
	}

	return SimulateResponse{ID: out.ID, SMS: out.Message, Code: out.Code}, nil
}
