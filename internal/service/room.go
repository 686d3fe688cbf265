package service

import (
	"errors"
	"sync"
	"time"

	"word-bluff-be/internal/config"
	"word-bluff-be/internal/service/game"

	"go.uber.org/zap"
)

// 每个房间一个条目，条目内的互斥锁把该房间的所有
// 读-改-写串行化；不同房间的动作完全并行
type roomEntry struct {
	mu   sync.Mutex
	room *game.Room
}

// RoomService 独占持有全部房间实例，是唯一的修改入口。
// 所有对房间的访问都经过条目锁，房间指针不向外泄露，
// 对外只返回深拷贝快照。
type RoomService struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry

	proc  *game.Processor
	rules game.Rules

	roomTTL     time.Duration
	cleanUpDone chan struct{}
}

func NewRoomService(cfg *config.AppConfig, words game.WordSource) *RoomService {
	rs := &RoomService{
		rooms: make(map[string]*roomEntry),
		proc:  game.NewProcessor(words),
		rules: game.Rules{
			TotalRounds:      cfg.TotalRounds,
			MaxPlayers:       cfg.MaxPlayers,
			MaxDefinitionLen: cfg.MaxDefinitionLen,
		},
		roomTTL:     time.Duration(cfg.RoomTTLMinutes) * time.Minute,
		cleanUpDone: make(chan struct{}),
	}

	// 定期清理空置或过久没有动作的房间
	go rs.startCleanupLoop()

	return rs
}

func (rs *RoomService) Close() {
	close(rs.cleanUpDone)
}

// ProcessAction 把一个入站动作交给处理器，返回动作后的房间快照
// 和需要投递的事件。加入动作会按需创建房间，其余动作要求房间已存在。
// 守卫失败时房间保持原样。
func (rs *RoomService) ProcessAction(
	roomID string,
	wrapper game.RequestWrapper,
) (*game.Room, []game.Event, error) {
	if roomID == "" {
		return nil, nil, errors.New("房间 ID 不能为空")
	}

	create := wrapper.ReqType == game.REQ_JOIN_ROOM

	entry, err := rs.entryFor(roomID, create)
	if err != nil {
		return nil, nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	events, err := rs.proc.Process(entry.room, wrapper)

	entry.room.LastActivity = time.Now()

	return entry.room.Clone(), events, err
}

// Snapshot 是轮询式投递的只读路径，返回房间的深拷贝
func (rs *RoomService) Snapshot(roomID string) (*game.Room, error) {
	rs.mu.RLock()
	entry, ok := rs.rooms[roomID]
	rs.mu.RUnlock()

	if !ok {
		return nil, game.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.room.Clone(), nil
}

// entryFor 返回房间的串行化条目，create 为真时按需创建
func (rs *RoomService) entryFor(roomID string, create bool) (*roomEntry, error) {
	rs.mu.RLock()
	entry, ok := rs.rooms[roomID]
	rs.mu.RUnlock()

	if ok {
		return entry, nil
	}

	if !create {
		return nil, game.ErrRoomNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	// 双检：可能有并发的加入已经建好了
	if entry, ok := rs.rooms[roomID]; ok {
		return entry, nil
	}

	entry = &roomEntry{
		room: game.NewRoom(roomID, rs.rules),
	}

	rs.rooms[roomID] = entry

	zap.S().Infof("房间 %s 已创建", roomID)

	return entry, nil
}

func (rs *RoomService) startCleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rs.cleanUpDone:
			return

		case <-ticker.C:
			rs.reapRooms()
		}
	}
}

func (rs *RoomService) reapRooms() {
	now := time.Now()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	for roomID, entry := range rs.rooms {
		entry.mu.Lock()
		empty := len(entry.room.Players) == 0
		idle := now.Sub(entry.room.LastActivity) > rs.roomTTL
		entry.mu.Unlock()

		if empty || idle {
			zap.S().Infof("房间 %s 状态失效，开始清理", roomID)
			delete(rs.rooms, roomID)
		}
	}
}
