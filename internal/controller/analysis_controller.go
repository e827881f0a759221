package controller

import (
	"errors"

	"postlens-be/internal/dto"
	"postlens-be/internal/pkg/serverutils"
	"postlens-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
	StartReveal(ctx *fiber.Ctx) error
	CancelReveal(ctx *fiber.Ctx) error
}

type analysisController struct {
	analysisService service.IAnalysisService
	streamService   service.IStreamService
}

func NewAnalysisController(analysisService service.IAnalysisService, streamService service.IStreamService) IAnalysisController {
	return &analysisController{
		analysisService: analysisService,
		streamService:   streamService,
	}
}

func (c *analysisController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/analyses", serverutils.JwtMiddleware)
	h.Post("/", c.Create)
	h.Get("/", c.List)
	h.Get("/:id", c.Get)
	h.Post("/:id/reveal", c.StartReveal)
	h.Post("/:id/reveal/cancel", c.CancelReveal)
}

func (c *analysisController) Create(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	var req dto.CreateAnalysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	res, err := c.analysisService.CreateAnalysis(ctx.Context(), userID, &req)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, service.ErrAnalysisLimit) {
			status = fiber.StatusTooManyRequests
		}
		return serverutils.Fail(ctx, status, err.Error())
	}
	return serverutils.OK(ctx, "Analysis started", res)
}

func (c *analysisController) List(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	limit := ctx.QueryInt("limit", 20)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.analysisService.ListAnalyses(ctx.Context(), userID, limit, offset)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Analyses retrieved", res)
}

func (c *analysisController) Get(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}
	analysisID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, "Invalid analysis id")
	}

	res, err := c.analysisService.GetAnalysis(ctx.Context(), userID, analysisID)
	if err != nil {
		if errors.Is(err, service.ErrAnalysisNotFound) {
			return serverutils.Fail(ctx, fiber.StatusNotFound, err.Error())
		}
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Analysis retrieved", res)
}

func (c *analysisController) StartReveal(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}
	analysisID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, "Invalid analysis id")
	}

	var req dto.StartRevealRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		if err := validate.Struct(&req); err != nil {
			return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
		}
	}

	if err := c.streamService.StartReveal(ctx.Context(), userID, analysisID, req.Mode); err != nil {
		switch {
		case errors.Is(err, service.ErrAnalysisNotFound):
			return serverutils.Fail(ctx, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrAnalysisNotComplete):
			return serverutils.Fail(ctx, fiber.StatusConflict, err.Error())
		}
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Reveal started", nil)
}

func (c *analysisController) CancelReveal(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}
	c.streamService.CancelReveal(userID)
	return serverutils.OK(ctx, "Reveal cancelled", nil)
}
