package controller

import (
	"postlens-be/internal/pkg/serverutils"
	"postlens-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEmbedController interface {
	RegisterRoutes(r fiber.Router)
	GetEmbed(ctx *fiber.Ctx) error
}

type embedController struct {
	service service.IEmbedService
}

func NewEmbedController(service service.IEmbedService) IEmbedController {
	return &embedController{service: service}
}

func (c *embedController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/embeds", serverutils.JwtMiddleware)
	h.Get("/", c.GetEmbed)
}

func (c *embedController) GetEmbed(ctx *fiber.Ctx) error {
	platform := ctx.Query("platform")
	postURL := ctx.Query("url")
	if platform == "" || postURL == "" {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, "platform and url are required")
	}

	res, err := c.service.GetEmbed(ctx.Context(), platform, postURL)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.OK(ctx, "Embed resolved", res)
}
