package controller

import (
	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/pkg/serverutils"
	"resume-qa-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router, guard fiber.Handler)
	ListEscalations(ctx *fiber.Ctx) error
	ResolveEscalation(ctx *fiber.Ctx) error
	PurgeCache(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(r fiber.Router, guard fiber.Handler) {
	h := r.Group("/admin/v1")
	h.Use(guard)
	h.Get("/escalations", c.ListEscalations)
	h.Patch("/escalations/:id/resolve", c.ResolveEscalation)
	h.Post("/cache/purge", c.PurgeCache)
}

func (c *adminController) ListEscalations(ctx *fiber.Ctx) error {
	var req dto.ListEscalationsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ListEscalations(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get escalations", res))
}

func (c *adminController) ResolveEscalation(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid escalation id")
	}

	if err := c.service.ResolveEscalation(ctx.UserContext(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success resolve escalation", nil))
}

func (c *adminController) PurgeCache(ctx *fiber.Ctx) error {
	res, err := c.service.PurgeCache(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success purge cache", res))
}
