package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/PowerOTP/internal/app/service"
	"go.uber.org/zap"
)

const outcomeOK = "ok"

// RedemptionRecorder observes redemption outcomes.
type RedemptionRecorder interface {
	ObserveRedemption(outcome string, elapsed time.Duration)
}

// ShareDeps groups dependencies required by the share handlers.
type ShareDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Redemption  service.RedemptionService
	Metrics     RedemptionRecorder
	BaseURL     string
	Now         func() time.Time
}

// ShareHandler implements the share link API.
type ShareHandler struct {
	logger     *zap.Logger
	links      service.LinkService
	redemption service.RedemptionService
	metrics    RedemptionRecorder
	baseURL    string
	now        func() time.Time
	validate   *validator.Validate
}

// NewShareHandler creates a share handler with the provided dependencies.
func NewShareHandler(deps ShareDeps) *ShareHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ShareHandler{
		logger:     logger,
		links:      deps.LinkService,
		redemption: deps.Redemption,
		metrics:    deps.Metrics,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
		now:        now,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register wires share routes onto the provided router.
func (h *ShareHandler) Register(router fiber.Router) {
	share := router.Group("/share")
	{
		share.Post("/", h.CreateShare)
		share.Get("/:id", h.Redeem)
	}
}

// CreateShareRequest is the body of POST /api/share.
type CreateShareRequest struct {
	Codes            []string `json:"codes" validate:"required,min=1,dive,required"`
	Period           int64    `json:"period" validate:"omitempty,min=1"`
	StartTime        int64    `json:"startTime"`
	ExpiresIn        string   `json:"expiresIn"`
	BurnAfterReading *bool    `json:"burnAfterReading"`
}

// CreateShareResponse is returned for a created link.
type CreateShareResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// RedemptionResponse is the payload of a successful redemption.
type RedemptionResponse struct {
	Codes              []string `json:"codes"`
	Period             int64    `json:"period"`
	FirstCodeTimestamp int64    `json:"firstCodeTimestamp"`
	BurnAfterReading   bool     `json:"burnAfterReading"`
	ExpiresAt          string   `json:"expiresAt"`
}

// ErrorResponse carries a message and a stable errorType tag.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"errorType"`
}

// CreateShare handles POST /api/share
func (h *ShareHandler) CreateShare(c *fiber.Ctx) error {
	var req CreateShareRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidInput(c, "invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return invalidInput(c, describeValidation(err))
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	link, err := h.links.CreateLink(ctx, service.CreateLinkInput{
		Codes:            req.Codes,
		Period:           req.Period,
		StartTime:        req.StartTime,
		ExpiresIn:        req.ExpiresIn,
		BurnAfterReading: req.BurnAfterReading,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return invalidInput(c, strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": "))
		}
		h.logger.Error("failed to create link", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:     "Internal Server Error",
			ErrorType: string(service.FailureInternal),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(CreateShareResponse{
		ID:  link.ID,
		URL: h.baseURL + "/s/" + link.ID,
	})
}

// Redeem handles GET /api/share/:id
func (h *ShareHandler) Redeem(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return invalidInput(c, "id is required")
	}

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	result, err := h.redemption.Redeem(ctx, id, h.now())
	failure := service.Classify(err)
	h.observe(failure, time.Since(start))

	if err != nil {
		return h.redeemFailed(c, id, failure, err)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(RedemptionResponse{
		Codes:              result.Codes,
		Period:             result.Period,
		FirstCodeTimestamp: result.FirstCodeTimestamp,
		BurnAfterReading:   result.BurnAfterReading,
		ExpiresAt:          result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *ShareHandler) redeemFailed(c *fiber.Ctx, id string, failure service.Failure, err error) error {
	status, message := failureStatus(failure)

	if failure == service.FailureInternal {
		h.logger.Error("failed to redeem link", zap.String("id", id), zap.Error(err))
	} else {
		h.logger.Debug("link redemption rejected", zap.String("error_type", string(failure)))
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		ErrorType: string(failure),
	})
}

func (h *ShareHandler) observe(failure service.Failure, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	outcome := string(failure)
	if failure == service.FailureNone {
		outcome = outcomeOK
	}
	h.metrics.ObserveRedemption(outcome, elapsed)
}

// failureStatus maps a failure tag onto its HTTP status and public message.
func failureStatus(f service.Failure) (int, string) {
	switch f {
	case service.FailureNotFound:
		return fiber.StatusNotFound, "Link not found"
	case service.FailureExpired:
		return fiber.StatusGone, "Link expired"
	case service.FailureBurned:
		return fiber.StatusGone, "This link has already been burned."
	case service.FailureOutOfSync:
		return fiber.StatusBadRequest, "Time out of sync range"
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

func invalidInput(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:     message,
		ErrorType: "invalid_input",
	})
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", jsonField(fe))
	case "min":
		return fmt.Sprintf("%s must be at least %s", jsonField(fe), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", jsonField(fe))
	}
}

// jsonField turns "Codes[2]" into "codes[2]".
func jsonField(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "field"
	}
	return strings.ToLower(name[:1]) + name[1:]
}
