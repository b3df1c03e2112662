package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/seed"
)

// SetupHandler exposes schema creation and demo data loading over HTTP. It
// is only mounted when the setup_routes flag is on.
type SetupHandler struct {
	migrate func(ctx context.Context) error
	seeder  *seed.Seeder
	responder
}

// NewSetupHandler creates the setup endpoints. A nil migrate means the
// storage needs no schema.
func NewSetupHandler(migrate func(ctx context.Context) error, seeder *seed.Seeder, logger *slog.Logger, debug bool) *SetupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SetupHandler{migrate: migrate, seeder: seeder, responder: responder{logger: logger, debug: debug}}
}

type SeedResponse struct {
	Message string        `json:"message"`
	Summary *seed.Summary `json:"summary"`
}

// Init handles POST /api/setup/init
func (h *SetupHandler) Init(w http.ResponseWriter, r *http.Request) {
	if h.migrate == nil {
		h.write(w, http.StatusOK, MessageResponse{Message: "no schema to apply"})
		return
	}
	if err := h.migrate(r.Context()); err != nil {
		h.fail(w, r, domain.Internal(err))
		return
	}
	h.write(w, http.StatusOK, MessageResponse{Message: "schema applied"})
}

// Seed handles POST /api/setup/seed
func (h *SetupHandler) Seed(w http.ResponseWriter, r *http.Request) {
	summary, err := h.seeder.Run(r.Context())
	if err != nil {
		h.fail(w, r, domain.Internal(err))
		return
	}
	msg := "demo data loaded"
	if summary.Skipped {
		msg = "demo data already present"
	}
	h.write(w, http.StatusOK, SeedResponse{Message: msg, Summary: summary})
}
