package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpbridge/internal/retriever"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.retriever.enabled") {
		if err := retriever.New(retriever.Dependency{
			Ctx:         a.ctx,
			Goroutine:   a.goroutine,
			Router:      a.router,
			Idempotency: a.idemp,
			Messaging:   a.messaging,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			Clock:       a.clock,
			Totp:        a.totp,
			Validator:   a.validator,
		}); err != nil {
			slog.Error("failed to init module retriever", "error", err)
			os.Exit(1)
		}
	}
}
