package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerOTP/internal/http/view"
	"go.uber.org/zap"
)

// ViewHandler serves the browser page behind share URLs.
type ViewHandler struct {
	logger *zap.Logger
}

// NewViewHandler creates a view handler.
func NewViewHandler(logger *zap.Logger) *ViewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewHandler{logger: logger}
}

// Register wires the viewer route onto the provided router.
func (h *ViewHandler) Register(router fiber.Router) {
	router.Get("/s/:id", h.SharePage)
}

// SharePage handles GET /s/:id. It does not touch the store.
func (h *ViewHandler) SharePage(c *fiber.Ctx) error {
	id := c.Params("id")

	html, err := view.RenderSharePage(view.SharePageData{
		ID:      id,
		APIPath: "/api/share/" + url.PathEscape(id),
	})
	if err != nil {
		h.logger.Error("failed to render share page", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set("X-Robots-Tag", "noindex, nofollow")
	c.Type("html", "utf-8")
	return c.SendString(html)
}
