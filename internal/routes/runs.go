package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledger-engine/internal/runs"
)

// RegisterRunRoutes wires run endpoints.
func RegisterRunRoutes(r fiber.Router, h *runs.Handler) {
	r.Post("/runs", h.Create)
}
