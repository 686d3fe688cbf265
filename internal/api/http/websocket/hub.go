package websocket

import (
	"sync"

	"word-bluff-be/internal/service/game"

	"go.uber.org/zap"
)

// Hub 维护每个房间的推送订阅者。
// 核心只负责产出事件，广播给谁完全是这一层的事情。
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan game.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan game.Event]struct{}),
	}
}

func (h *Hub) Subscribe(roomID string, ch chan game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[roomID]
	if !ok {
		subs = make(map[chan game.Event]struct{})
		h.subscribers[roomID] = subs
	}

	subs[ch] = struct{}{}
}

func (h *Hub) Unsubscribe(roomID string, ch chan game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[roomID]
	if !ok {
		return
	}

	delete(subs, ch)

	if len(subs) == 0 {
		delete(h.subscribers, roomID)
	}
}

func (h *Hub) Broadcast(roomID string, events []game.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[roomID] {
		for _, evt := range events {
			select {
			case ch <- evt:
			default:
				zap.L().Warn(
					"发送广播事件失败：订阅者通道已满",
					zap.String("room_id", roomID),
					zap.String("event_type", evt.Type),
				)
			}
		}
	}
}
