package controller

import (
	"resume-qa-be/internal/dto"
	"resume-qa-be/internal/pkg/serverutils"
	"resume-qa-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IResolveController interface {
	RegisterRoutes(r fiber.Router, limiters ...fiber.Handler)
	Ask(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type resolveController struct {
	service service.IResolveService
}

func NewResolveController(service service.IResolveService) IResolveController {
	return &resolveController{service: service}
}

// RegisterRoutes mounts the public visitor routes. limiters run before Ask only.
func (c *resolveController) RegisterRoutes(r fiber.Router, limiters ...fiber.Handler) {
	h := r.Group("/resolve/v1")
	h.Post("/ask", append(limiters, c.Ask)...)
	h.Get("/stats", c.Stats)
}

func (c *resolveController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success resolve question", res))
}

func (c *resolveController) Stats(ctx *fiber.Ctx) error {
	res := c.service.Stats(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success get stats", res))
}
