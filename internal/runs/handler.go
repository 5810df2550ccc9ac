package runs

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledger-engine/internal/csvio"
	"github.com/congo-pay/ledger-engine/internal/diagnostics"
	"github.com/congo-pay/ledger-engine/internal/ledger"
	"github.com/congo-pay/ledger-engine/internal/middleware"
)

const mimeTextCSV = "text/csv"

// Handler exposes run endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a run handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type accountResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

type runResponse struct {
	RunID    string                `json:"run_id"`
	Accounts []accountResponse     `json:"accounts"`
	Warnings []diagnostics.Warning `json:"warnings"`
	Applied  int                   `json:"applied"`
	Rejected int                   `json:"rejected"`
}

// Create processes the CSV request body. The account table is returned as JSON
// unless the client prefers text/csv.
func (h *Handler) Create(c *fiber.Ctx) error {
	report, err := h.service.Process(c.UserContext(), bytes.NewReader(c.Body()))
	if err != nil {
		var parseErr *csvio.ParseError
		if errors.As(err, &parseErr) {
			return c.Status(http.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": parseErr.Err.Error(),
				"line":  parseErr.Line,
			})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	c.Locals(middleware.RunIDLocal, report.RunID.String())

	if c.Accepts(fiber.MIMEApplicationJSON, mimeTextCSV) == mimeTextCSV {
		var buf bytes.Buffer
		if err := csvio.WriteAccounts(&buf, report.Accounts); err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, mimeTextCSV)
		return c.Status(http.StatusOK).Send(buf.Bytes())
	}

	return c.Status(http.StatusOK).JSON(newRunResponse(report))
}

func newRunResponse(r Report) runResponse {
	out := runResponse{
		RunID:    r.RunID.String(),
		Accounts: make([]accountResponse, 0, len(r.Accounts)),
		Warnings: r.Warnings,
		Applied:  r.Applied,
		Rejected: r.Rejected,
	}
	if out.Warnings == nil {
		out.Warnings = []diagnostics.Warning{}
	}
	for _, s := range r.Accounts {
		out.Accounts = append(out.Accounts, accountView(s))
	}
	return out
}

func accountView(s ledger.Snapshot) accountResponse {
	return accountResponse{
		Client:    uint16(s.Client),
		Available: s.Available.StringFixed(csvio.AmountPlaces),
		Held:      s.Held.StringFixed(csvio.AmountPlaces),
		Total:     s.Total.StringFixed(csvio.AmountPlaces),
		Locked:    s.Locked,
	}
}
