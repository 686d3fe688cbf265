package websocket

import (
	"encoding/json"
	"time"

	"word-bluff-be/internal/service/game"
	"word-bluff-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

var hub = NewHub()

// JoinRoom 把一条 WebSocket 连接接入指定房间：
// 首帧必须是 JoinRoom 请求，之后的每一帧都转发给处理器，
// 产出的事件广播给房间的全部订阅者，错误只回给发起者。
func JoinRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		roomID := ctx.Params().Get("room_id")

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		clientIP := ctx.RemoteAddr()

		// 读取首帧，必须是 JoinRoom 请求
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"读取首帧失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			zap.L().Error(
				"解析首帧失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		if game.TryUnwrapJoinRoomRequest(wrapper) == nil {
			zap.L().Error(
				"首帧不是JoinRoom类型",
				zap.String("client_ip", clientIP),
				zap.Any("wrapper", wrapper),
			)
			return
		}

		snapshot, events, err := appState.RoomSvc.ProcessAction(roomID, wrapper)
		if err != nil {
			zap.L().Warn(
				"加入房间失败",
				zap.String("client_ip", clientIP),
				zap.String("room_id", roomID),
				zap.Error(err),
			)

			conn.WriteJSON(game.NewErrorEvent(err.Error()))
			return
		}

		playerID := joinedPlayerID(events)
		if playerID == "" {
			zap.L().Error(
				"未能获取玩家ID",
				zap.String("client_ip", clientIP),
				zap.String("room_id", roomID),
			)
			return
		}

		respCh := make(chan game.Event, 64)
		hub.Subscribe(roomID, respCh)
		defer hub.Unsubscribe(roomID, respCh)

		hub.Broadcast(roomID, attachSnapshot(events, snapshot))

		zap.L().Info(
			"玩家成功接入房间",
			zap.String("client_ip", clientIP),
			zap.String("room_id", roomID),
			zap.String("player_id", playerID),
		)

		// 写协程的退出信号
		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		// 写入协程
		go func() {
			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			for {
				select {
				case <-writeDoneCh:
					zap.L().Debug(
						"WebSocket写入协程退出",
						zap.String("client_ip", clientIP),
					)
					return

				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

				case evt := <-respCh:
					if err := conn.WriteJSON(evt); err != nil {
						zap.L().Error(
							"发送事件失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}
				}
			}
		}()

		// 读取循环（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}

				break
			}

			var wrapper game.RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				zap.L().Error(
					"解析消息失败",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)

				respCh <- game.NewErrorEvent("无效的请求格式")

				continue
			}

			snapshot, events, err := appState.RoomSvc.ProcessAction(roomID, wrapper)
			if err != nil {
				// 被拒绝的动作只通知发起者
				respCh <- game.NewErrorEvent(err.Error())
				continue
			}

			hub.Broadcast(roomID, attachSnapshot(events, snapshot))
		}

		// 读循环退出说明客户端断开，向状态机注入退出动作清理玩家
		zap.L().Info(
			"客户端连接断开，发送退出请求",
			zap.String("client_ip", clientIP),
			zap.String("player_id", playerID),
		)

		leaveWrapper := game.RequestWrapper{
			ReqType: game.REQ_LEAVE_ROOM,
			Data:    mustMarshal(game.LeaveRoomRequest{PlayerID: playerID}),
		}

		snapshot, events, err = appState.RoomSvc.ProcessAction(roomID, leaveWrapper)
		if err != nil {
			zap.L().Warn(
				"清理退出玩家失败",
				zap.String("room_id", roomID),
				zap.String("player_id", playerID),
				zap.Error(err),
			)
			return
		}

		hub.Broadcast(roomID, attachSnapshot(events, snapshot))
	}
}

// joinedPlayerID 从加入动作的事件里取出分配到的玩家 ID
func joinedPlayerID(events []game.Event) string {
	for _, evt := range events {
		if evt.Type != game.EVT_PLAYER_JOINED {
			continue
		}

		if player, ok := evt.Data.(game.Player); ok {
			return player.ID
		}
	}

	return ""
}

// attachSnapshot 给 RoomUpdated 事件补上对外安全的房间视图，
// 核心产出的事件本身不携带完整房间
func attachSnapshot(events []game.Event, snapshot *game.Room) []game.Event {
	filled := make([]game.Event, 0, len(events))

	for _, evt := range events {
		if evt.Type == game.EVT_ROOM_UPDATED {
			evt.Data = snapshot.PublicView()
		}

		filled = append(filled, evt)
	}

	return filled
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("marshal failed", zap.Error(err))
		return nil
	}

	return data
}
