package inbound

import (
	"net/http"

	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
	"github.com/shandysiswandi/otpbridge/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, cfg config.Config, uc uc, in *Intake) {
	end := &HTTPEndpoint{uc: uc, cfg: cfg, intake: in}

	// Listener lifecycle
	r.POST("/api/v1/retriever/start", end.Start)
	r.POST("/api/v1/retriever/start/wait", end.StartWait)
	r.POST("/api/v1/retriever/stop", end.Stop)
	r.GET("/api/v1/retriever/status", end.Status)
	r.GET("/api/v1/retriever/app-hash", end.AppHash)

	// Deliveries from the device agent and the dev simulator
	r.POST("/api/v1/retriever/deliveries", end.Deliver)
	r.POST("/api/v1/retriever/simulate", end.Simulate)

	r.GETRaw("/api/v1/retriever/stream", http.HandlerFunc(end.StreamEvents))
}
