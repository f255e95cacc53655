package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/infrastructure/clients/facebook"
	"social-publisher/usecase"
)

type IAccountHandler interface {
	List(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	FacebookPageDetails(ctx *gin.Context)
}

type accountHandler struct {
	accountUsecase usecase.IAccountUsecase
	fbClient       *facebook.Client
}

func NewAccountHandler(accountUsecase usecase.IAccountUsecase, fbClient *facebook.Client) IAccountHandler {
	return &accountHandler{accountUsecase: accountUsecase, fbClient: fbClient}
}

func (h *accountHandler) List(ctx *gin.Context) {
	user := ctx.GetString("user_id")
	accounts, err := h.accountUsecase.List(ctx.Request.Context(), user)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: accounts})
}

func (h *accountHandler) Disconnect(ctx *gin.Context) {
	var req dto.DisconnectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, model.NewValidationError("%v", err))
		return
	}
	user := ctx.GetString("user_id")
	if err := h.accountUsecase.Disconnect(ctx.Request.Context(), user, req.Platform); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Disconnected"})
}

// FacebookPageDetails returns page metadata for a connected page, served from
// the Redis cache when warm.
func (h *accountHandler) FacebookPageDetails(ctx *gin.Context) {
	user := ctx.GetString("user_id")
	pageID := ctx.Param("pageId")

	accounts, err := h.accountUsecase.List(ctx.Request.Context(), user)
	if err != nil {
		fail(ctx, err)
		return
	}
	var cred *model.Credential
	for _, acc := range accounts {
		if acc.Platform == model.PlatformFacebook && acc.ProviderID == pageID {
			cred = acc
			break
		}
	}
	if cred == nil {
		fail(ctx, model.NewAccountNotConnectedError(model.PlatformFacebook, pageID))
		return
	}
	meta, err := h.fbClient.PageDetails(ctx.Request.Context(), cred)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: meta})
}
