package http

import (
	"errors"

	"word-bluff-be/internal/service/game"
	"word-bluff-be/internal/state"

	"github.com/kataras/iris/v12"
)

func ProcessAction(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")

		var wrapper game.RequestWrapper

		if err := ctx.ReadJSON(&wrapper); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		snapshot, events, err := appState.RoomSvc.ProcessAction(roomID, wrapper)
		if err != nil {
			ctx.StatusCode(statusForError(err))
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(iris.Map{
			"room":   snapshot.PublicView(),
			"events": events,
		})
	}
}

func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")

		snapshot, err := appState.RoomSvc.Snapshot(roomID)
		if err != nil {
			ctx.StatusCode(statusForError(err))
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(snapshot.PublicView())
	}
}

// 把核心的类型化错误映射为 HTTP 状态码，
// 核心本身不感知这里的映射
func statusForError(err error) int {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return iris.StatusNotFound

	case errors.Is(err, game.ErrNameTaken),
		errors.Is(err, game.ErrAlreadySubmitted),
		errors.Is(err, game.ErrAlreadyVoted):
		return iris.StatusConflict

	default:
		return iris.StatusBadRequest
	}
}
