package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/dto"
	"social-publisher/domain/model"
	"social-publisher/usecase"
)

type IPostHandler interface {
	Create(ctx *gin.Context)
	List(ctx *gin.Context)
	Delete(ctx *gin.Context)
	History(ctx *gin.Context)
}

type postHandler struct {
	postUsecase usecase.IPostUsecase
}

func NewPostHandler(postUsecase usecase.IPostUsecase) IPostHandler {
	return &postHandler{postUsecase: postUsecase}
}

// statusFor maps a classified publish error onto an HTTP status.
func statusFor(err error) int {
	switch model.KindOf(err) {
	case model.ErrKindValidation:
		return http.StatusBadRequest
	case model.ErrKindAccountNotConnected:
		return http.StatusConflict
	case model.ErrKindTokenExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func fail(ctx *gin.Context, err error) {
	status := statusFor(err)
	ctx.JSON(status, dto.Res{
		ResponseCode:    strconv.Itoa(status),
		ResponseMessage: err.Error(),
	})
}

func (h *postHandler) Create(ctx *gin.Context) {
	var req dto.CreatePostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		fail(ctx, model.NewValidationError("%v", err))
		return
	}
	user := ctx.GetString("user_id")
	results, err := h.postUsecase.Create(ctx.Request.Context(), user, req)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.Res{ResponseCode: "201", ResponseMessage: "Created", Data: results})
}

func (h *postHandler) List(ctx *gin.Context) {
	user := ctx.GetString("user_id")
	jobs, err := h.postUsecase.List(ctx.Request.Context(), user)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: jobs})
}

func (h *postHandler) Delete(ctx *gin.Context) {
	user := ctx.GetString("user_id")
	if err := h.postUsecase.Delete(ctx.Request.Context(), user, ctx.Param("id")); err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Deleted"})
}

func (h *postHandler) History(ctx *gin.Context) {
	user := ctx.GetString("user_id")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "50"))
	rows, err := h.postUsecase.History(ctx.Request.Context(), user, limit)
	if err != nil {
		fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: rows})
}
