package http

import (
	"reply_server/core/domain"
	"reply_server/core/port/in"

	"github.com/gofiber/fiber/v2"
)

type ReplyHandler struct {
	replyService in.ReplyService
}

func NewReplyHandler(replyService in.ReplyService) *ReplyHandler {
	return &ReplyHandler{replyService: replyService}
}

func (h *ReplyHandler) Register(app fiber.Router) {
	app.Post("/generate-reply", h.GenerateReply)
	app.Post("/compose", h.Compose)
}

// GenerateReply handles POST /generate-reply.
func (h *ReplyHandler) GenerateReply(c *fiber.Ctx) error {
	var req domain.EmailRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	email, err := h.replyService.GenerateReply(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(domain.ReplyResponse{Reply: email})
}

// Compose handles POST /compose.
func (h *ReplyHandler) Compose(c *fiber.Ctx) error {
	var req domain.EmailCompose
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	email, err := h.replyService.Compose(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.JSON(domain.ReplyResponse{Reply: email})
}
