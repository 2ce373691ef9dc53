package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-feedback-insights/internal/dto"
	"github.com/noah-isme/gema-feedback-insights/internal/middleware"
	"github.com/noah-isme/gema-feedback-insights/internal/service"
	"github.com/noah-isme/gema-feedback-insights/internal/utils"
)

// FeedbackDashboardHandler exposes the instructor feedback dashboard endpoints.
type FeedbackDashboardHandler struct {
	service      service.FeedbackDashboardService
	validator    *validator.Validate
	logger       zerolog.Logger
	refreshLimit int
}

// NewFeedbackDashboardHandler constructs the handler. refreshLimit caps refreshes per client per minute.
func NewFeedbackDashboardHandler(service service.FeedbackDashboardService, validate *validator.Validate, refreshLimit int, logger zerolog.Logger) *FeedbackDashboardHandler {
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}

	return &FeedbackDashboardHandler{
		service:      service,
		validator:    validate,
		logger:       logger.With().Str("component", "feedback_dashboard_handler").Logger(),
		refreshLimit: refreshLimit,
	}
}

// Register attaches the dashboard routes to the router group.
func (h *FeedbackDashboardHandler) Register(router fiber.Router) {
	router.Get("/summary", h.summary)
	router.Get("/questions", h.questions)
	router.Get("/students", h.students)
	router.Get("/students/:studentId/submissions", h.studentDetail)
	router.Get("/submissions", h.submissions)
	router.Post("/refresh", middleware.RateLimit("feedback-refresh", h.refreshLimit, time.Minute), h.refresh)
}

func (h *FeedbackDashboardHandler) summary(c *fiber.Ctx) error {
	summary, meta, err := h.service.Summary(c.UserContext())
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Msg("failed to compute dashboard summary")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load summary")
	}

	message := "summary retrieved"
	if summary.Empty {
		message = "no submissions yet"
	}
	return utils.OK(c, summary, message, snapshotMeta(meta))
}

func (h *FeedbackDashboardHandler) questions(c *fiber.Ctx) error {
	breakdown, meta, err := h.service.QuestionBreakdown(c.UserContext())
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Msg("failed to compute question breakdown")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load question breakdown")
	}

	return utils.OK(c, breakdown, "question breakdown retrieved", snapshotMeta(meta))
}

func (h *FeedbackDashboardHandler) students(c *fiber.Ctx) error {
	students, meta, err := h.service.Students(c.UserContext())
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load students")
	}

	return utils.OK(c, students, "students retrieved", snapshotMeta(meta))
}

func (h *FeedbackDashboardHandler) studentDetail(c *fiber.Ctx) error {
	request := dto.StudentDetailRequest{StudentID: pathParam(c, "studentId")}
	if err := h.validator.Struct(request); err != nil {
		if isValidationError(err) {
			return utils.Fail(c, fiber.StatusBadRequest, "invalid student id", validationDetails(err))
		}
		return utils.SendError(c, fiber.StatusBadRequest, "invalid student id")
	}

	detail, meta, err := h.service.StudentDetail(c.UserContext(), request.StudentID)
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Str("student_id", request.StudentID).Msg("failed to load student detail")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load student submissions")
	}

	message := "student submissions retrieved"
	if len(detail.Submissions) == 0 {
		message = "no submissions for this student"
	}
	return utils.OK(c, detail, message, snapshotMeta(meta))
}

func (h *FeedbackDashboardHandler) submissions(c *fiber.Ctx) error {
	table, meta, err := h.service.Submissions(c.UserContext())
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Msg("failed to list submissions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load submissions")
	}

	message := "submissions retrieved"
	if len(table.Items) == 0 {
		message = "no submissions yet"
	}
	return utils.OK(c, table, message, snapshotMeta(meta))
}

func (h *FeedbackDashboardHandler) refresh(c *fiber.Ctx) error {
	refreshed, err := h.service.Refresh(c.UserContext())
	if err != nil {
		middleware.RequestLogger(h.logger, c).Error().Err(err).Msg("failed to refresh snapshot")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to refresh submissions")
	}

	middleware.RequestLogger(h.logger, c).Info().Int("submission_count", refreshed.SubmissionCount).Msg("snapshot refreshed")
	return utils.OK(c, refreshed, "submissions refreshed", nil)
}
