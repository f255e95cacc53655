package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

type IAutomationHandler interface {
	Create(ctx *gin.Context)
}

type automationHandler struct {
	automationUsecase usecase.IAutomationUsecase
}

func NewAutomationHandler(automationUsecase usecase.IAutomationUsecase) IAutomationHandler {
	return &automationHandler{automationUsecase: automationUsecase}
}

func (h *automationHandler) Create(ctx *gin.Context) {
	var req dto.CreateAutomationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, model.NewValidationError("%v", err))
		return
	}
	user := ctx.GetString("user_id")
	jobs, err := h.automationUsecase.Create(ctx.Request.Context(), user, req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.Res{ResponseCode: "201", ResponseMessage: "Created", Data: jobs})
}
