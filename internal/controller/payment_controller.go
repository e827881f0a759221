package controller

import (
	"postlens-be/internal/dto"
	"postlens-be/internal/pkg/serverutils"
	"postlens-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	GetPlans(ctx *fiber.Ctx) error
	Checkout(ctx *fiber.Ctx) error
	Notification(ctx *fiber.Ctx) error
	SubscriptionStatus(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
}

func NewPaymentController(service service.IPaymentService) IPaymentController {
	return &paymentController{service: service}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/billing")
	h.Get("/plans", c.GetPlans)
	// The webhook is called by Midtrans, not the client; it has no JWT.
	h.Post("/notification", c.Notification)

	auth := h.Group("", serverutils.JwtMiddleware)
	auth.Post("/checkout", c.Checkout)
	auth.Get("/subscription", c.SubscriptionStatus)
	auth.Post("/subscription/cancel", c.Cancel)
}

func (c *paymentController) GetPlans(ctx *fiber.Ctx) error {
	res, err := c.service.GetPlans(ctx.Context())
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Plans retrieved", res)
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	var req dto.CheckoutRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := validate.Struct(&req); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.Checkout(ctx.Context(), userID, &req)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.OK(ctx, "Checkout created", res)
}

func (c *paymentController) Notification(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := c.service.HandleNotification(ctx.Context(), &req); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.OK(ctx, "Notification processed", nil)
}

func (c *paymentController) SubscriptionStatus(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	res, err := c.service.GetSubscriptionStatus(ctx.Context(), userID)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusInternalServerError, err.Error())
	}
	return serverutils.OK(ctx, "Subscription status retrieved", res)
}

func (c *paymentController) Cancel(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserIDFromLocals(ctx)
	if err != nil {
		return serverutils.Fail(ctx, fiber.StatusUnauthorized, "Invalid session")
	}

	if err := c.service.CancelSubscription(ctx.Context(), userID); err != nil {
		return serverutils.Fail(ctx, fiber.StatusBadRequest, err.Error())
	}
	return serverutils.OK(ctx, "Subscription cancelled", nil)
}
