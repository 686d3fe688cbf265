package http

import (
	"fmt"

	"word-bluff-be/internal/api/http/websocket"
	"word-bluff-be/internal/state"

	"github.com/kataras/iris/v12"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	api := app.Party("/api/v1")

	// 轮询式投递：提交动作 + 拉取快照
	api.Post("/rooms/{room_id}/actions", ProcessAction(appState))
	api.Get("/rooms/{room_id}", GetRoom(appState))

	// 推送式投递
	api.Get("/ws/rooms/{room_id}", websocket.JoinRoom(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
