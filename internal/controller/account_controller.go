package controller

import (
	"postlens-be/internal/dto"
	"postlens-be/internal/pkg/serverutils"
	"postlens-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAccountController interface {
	RegisterRoutes(r fiber.Router)
	GetProfile(ctx *fiber.Ctx) error
	UpdateProfile(ctx *fiber.Ctx) error
	GetUsage(ctx *fiber.Ctx) error
}

type accountController struct {
	service service.IAccountService
}

func NewAccountController(service service.IAccountService) IAccountController {
	return &accountController{service: service}
}

func (c *accountController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/me", serverutils.JwtMiddleware)
	h.Get("/", c.GetProfile)
	h.Put("/", c.UpdateProfile)
	h.Get("/usage", c.GetUsage)
}

func (c *accountController) GetProfile(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	res, err := c.service.GetProfile(ctx.Context(), userID)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusNotFound, err.Error())
	}
	return serverutils.OK(ctx, "Profile retrieved", res)
}

func (c *accountController) UpdateProfile(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	var req dto.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.UpdateProfile(ctx.Context(), userID, &req)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.OK(ctx, "Profile updated", res)
}

func (c *accountController) GetUsage(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	res, err := c.service.GetUsage(ctx.Context(), userID)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Usage retrieved", res)
}
