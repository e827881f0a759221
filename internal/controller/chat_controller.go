package controller

import (
	"postlens-be/internal/dto"
	"postlens-be/internal/pkg/serverutils"
	"postlens-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	ClearHistory(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
}

func NewChatController(service service.IChatService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat", serverutils.JwtMiddleware)
	h.Post("/messages", c.SendMessage)
	h.Get("/history/:analysisId", c.GetHistory)
	h.Delete("/history/:analysisId", c.ClearHistory)
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.SendMessage(ctx.Context(), userID, &req)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadGateway, err.Error())
	}
	if res == nil {
		// Empty input or a response already streaming; nothing was sent.
		return serverutils.OK(ctx, "Message ignored", nil)
	}
	return serverutils.OK(ctx, "Message sent", res)
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}
	analysisID, err := uuid.Parse(ctx.Params("analysisId"))
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, "Invalid analysis id")
	}

	res, err := c.service.GetHistory(ctx.Context(), userID, analysisID)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "History retrieved", res)
}

func (c *chatController) ClearHistory(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}
	analysisID, err := uuid.Parse(ctx.Params("analysisId"))
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, "Invalid analysis id")
	}

	if err := c.service.ClearHistory(ctx.Context(), userID, analysisID); err != nil {
		if err == service.ErrChatBusy {
			return serverutils.Fail(ctx, fiber.StatusConflict, err.Error())
		}
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "History cleared", nil)
}
