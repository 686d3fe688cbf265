package game

import (
	"errors"
	"math/rand"
	"strings"

	"go.uber.org/zap"
)

// WordSource 为处理器提供本轮词语，由词库实现
type WordSource interface {
	Draw() (Word, error)
}

// 每个阶段一个处理器，只接受阶段表允许的请求。
// 守卫失败时返回类型化错误且不产生任何修改，转换是全有或全无的。
type PhaseHandler interface {
	Phase() string
	OnHandle(room *Room, req RequestWrapper) ([]Event, error)
}

// Processor 是核心的唯一入口：校验入站动作、修改房间或拒绝，
// 并返回应当投递给外部的事件。调用方负责房间级别的串行化。
type Processor struct {
	words    WordSource
	handlers map[string]PhaseHandler
}

func NewProcessor(words WordSource) *Processor {
	p := &Processor{
		words: words,
	}

	p.handlers = map[string]PhaseHandler{
		PHASE_WAITING:  &waitingHandler{proc: p},
		PHASE_DEFINING: &definingHandler{},
		PHASE_VOTING:   &votingHandler{},
		PHASE_RESULTS:  &resultsHandler{proc: p},
		PHASE_FINISHED: &finishedHandler{},
	}

	return p
}

func (p *Processor) Process(room *Room, wrapper RequestWrapper) ([]Event, error) {
	// 退出在任何阶段都允许，统一在分发前处理
	if req := TryUnwrapLeaveRoomRequest(wrapper); req != nil {
		return p.handleLeave(room, req)
	}

	// 非等待阶段的加入只允许已知玩家的同名重入，保持加入幂等
	if req := TryUnwrapJoinRoomRequest(wrapper); req != nil && room.Phase != PHASE_WAITING {
		if req.PlayerID != "" {
			if existing := room.FindPlayer(req.PlayerID); existing != nil && existing.Name == req.PlayerName {
				zap.L().Info(
					"玩家重入房间",
					zap.String("room_id", room.ID),
					zap.String("player_id", existing.ID),
				)

				return []Event{
					NewEvent(EVT_ROOM_UPDATED, nil),
					NewEvent(EVT_PLAYER_JOINED, *existing),
				}, nil
			}
		}

		return nil, ErrInvalidPhase
	}

	handler, ok := p.handlers[room.Phase]
	if !ok {
		zap.L().Error(
			"未知的游戏阶段",
			zap.String("room_id", room.ID),
			zap.String("phase", room.Phase),
		)

		return nil, ErrInvalidPhase
	}

	return handler.OnHandle(room, wrapper)
}

// 等待阶段：玩家加入，凑齐人数后开始游戏
type waitingHandler struct {
	proc *Processor
}

func (wh *waitingHandler) Phase() string {
	return PHASE_WAITING
}

func (wh *waitingHandler) OnHandle(room *Room, wrapper RequestWrapper) ([]Event, error) {
	if req := TryUnwrapJoinRoomRequest(wrapper); req != nil {
		if req.PlayerName == "" {
			return nil, errors.New("玩家名称不能为空")
		}

		// 携带已有 ID 且同名，视为重入，幂等返回原玩家
		if req.PlayerID != "" {
			if existing := room.FindPlayer(req.PlayerID); existing != nil && existing.Name == req.PlayerName {
				return []Event{
					NewEvent(EVT_ROOM_UPDATED, nil),
					NewEvent(EVT_PLAYER_JOINED, *existing),
				}, nil
			}
		}

		// 名称在房间内唯一，区分大小写；竞争同名时只有一个赢家
		if room.FindPlayerByName(req.PlayerName) != nil {
			return nil, ErrNameTaken
		}

		if len(room.Players) >= room.Rules.MaxPlayers {
			return nil, ErrRoomFull
		}

		player := &Player{
			ID:   ShortID(),
			Name: req.PlayerName,
		}

		room.Players = append(room.Players, player)

		zap.L().Info(
			"玩家加入房间",
			zap.String("room_id", room.ID),
			zap.String("player_id", player.ID),
			zap.String("player_name", player.Name),
		)

		return []Event{
			NewEvent(EVT_ROOM_UPDATED, nil),
			NewEvent(EVT_PLAYER_JOINED, *player),
		}, nil
	}

	if req := TryUnwrapStartGameRequest(wrapper); req != nil {
		if room.FindPlayer(req.PlayerID) == nil {
			return nil, ErrUnknownPlayer
		}

		// 至少两名玩家才能开始
		if len(room.Players) < 2 {
			return nil, ErrInvalidPhase
		}

		roundEvents, err := wh.proc.beginRound(room, 1)
		if err != nil {
			return nil, err
		}

		zap.L().Info(
			"游戏开始",
			zap.String("room_id", room.ID),
			zap.Int("players", len(room.Players)),
		)

		events := []Event{
			NewEvent(EVT_ROOM_UPDATED, nil),
			NewEvent(EVT_GAME_STARTED, nil),
		}

		return append(events, roundEvents...), nil
	}

	return nil, ErrInvalidPhase
}

// 编写阶段：收集每个玩家的假释义，收齐后自动进入投票
type definingHandler struct{}

func (dh *definingHandler) Phase() string {
	return PHASE_DEFINING
}

func (dh *definingHandler) OnHandle(room *Room, wrapper RequestWrapper) ([]Event, error) {
	req := TryUnwrapSubmitDefinitionRequest(wrapper)
	if req == nil {
		return nil, ErrInvalidPhase
	}

	player := room.FindPlayer(req.PlayerID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	if player.HasSubmitted {
		return nil, ErrAlreadySubmitted
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyDefinition
	}

	if len([]rune(req.Text)) > room.Rules.MaxDefinitionLen {
		return nil, ErrDefinitionTooLong
	}

	player.PendingDefinition = req.Text
	player.HasSubmitted = true

	zap.L().Debug(
		"收到释义",
		zap.String("room_id", room.ID),
		zap.String("player_id", player.ID),
	)

	events := []Event{NewEvent(EVT_ROOM_UPDATED, nil)}

	if room.AllSubmitted() {
		events = append(events, beginVoting(room)...)
	}

	return events, nil
}

// 投票阶段：玩家从匿名列表中投票，收齐后自动结算
type votingHandler struct{}

func (vh *votingHandler) Phase() string {
	return PHASE_VOTING
}

func (vh *votingHandler) OnHandle(room *Room, wrapper RequestWrapper) ([]Event, error) {
	req := TryUnwrapSubmitVoteRequest(wrapper)
	if req == nil {
		return nil, ErrInvalidPhase
	}

	player := room.FindPlayer(req.PlayerID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	target := room.FindDefinition(req.DefinitionID)
	if target == nil {
		return nil, ErrInvalidTarget
	}

	if player.HasVoted {
		return nil, ErrAlreadyVoted
	}

	// 改票是移动而不是叠加：先把旧票从原释义中摘除，
	// 任何时刻一个投票者在所有释义中至多出现一次
	if player.PendingVote != "" {
		if previous := room.FindDefinition(player.PendingVote); previous != nil {
			previous.VoterIDs = removeVoter(previous.VoterIDs, player.ID)
		}
	}

	target.VoterIDs = append(target.VoterIDs, player.ID)
	player.PendingVote = target.ID
	player.HasVoted = true

	zap.L().Debug(
		"收到投票",
		zap.String("room_id", room.ID),
		zap.String("player_id", player.ID),
		zap.String("definition_id", target.ID),
	)

	events := []Event{NewEvent(EVT_ROOM_UPDATED, nil)}

	if room.AllVoted() {
		events = append(events, endRound(room)...)
	}

	return events, nil
}

// 结算阶段：展示本轮得分，等待进入下一轮或收尾
type resultsHandler struct {
	proc *Processor
}

func (rh *resultsHandler) Phase() string {
	return PHASE_RESULTS
}

func (rh *resultsHandler) OnHandle(room *Room, wrapper RequestWrapper) ([]Event, error) {
	req := TryUnwrapNextRoundRequest(wrapper)
	if req == nil {
		return nil, ErrInvalidPhase
	}

	if room.FindPlayer(req.PlayerID) == nil {
		return nil, ErrUnknownPlayer
	}

	if room.CurrentRound >= room.Rules.TotalRounds {
		room.Phase = PHASE_FINISHED

		zap.L().Info(
			"游戏结束",
			zap.String("room_id", room.ID),
			zap.Int("rounds", room.CurrentRound),
		)

		return []Event{
			NewEvent(EVT_ROOM_UPDATED, nil),
			NewEvent(EVT_GAME_ENDED, GameEndedPayload{
				FinalScores: room.FinalScores(),
			}),
		}, nil
	}

	roundEvents, err := rh.proc.beginRound(room, room.CurrentRound+1)
	if err != nil {
		return nil, err
	}

	return append([]Event{NewEvent(EVT_ROOM_UPDATED, nil)}, roundEvents...), nil
}

// 结束阶段是终态，拒绝一切动作
type finishedHandler struct{}

func (fh *finishedHandler) Phase() string {
	return PHASE_FINISHED
}

func (fh *finishedHandler) OnHandle(room *Room, wrapper RequestWrapper) ([]Event, error) {
	return nil, ErrInvalidPhase
}

// 开始新一轮。抽词放在最前面，抽词失败时房间不发生任何修改。
func (p *Processor) beginRound(room *Room, round int) ([]Event, error) {
	word, err := p.words.Draw()
	if err != nil {
		return nil, err
	}

	room.CurrentRound = round
	room.CurrentWord = &word
	room.Definitions = make([]*Definition, 0)
	room.DepartedDefinitions = make([]*Definition, 0)
	room.resetRoundFlags()
	room.Phase = PHASE_DEFINING

	zap.L().Info(
		"新一轮开始",
		zap.String("room_id", room.ID),
		zap.Int("round", round),
		zap.String("word", word.Text),
	)

	return []Event{
		NewEvent(EVT_ROUND_STARTED, RoundStartedPayload{
			Round:    round,
			WordText: word.Text,
		}),
	}, nil
}

// 最后一份释义交齐时进入投票阶段：
// 植入唯一的正确释义，作者为系统哨兵，ID 与玩家释义同构无法辨认；
// 均匀随机置换整个列表，避免位置暴露正确项
func beginVoting(room *Room) []Event {
	defs := make([]*Definition, 0, len(room.Players)+len(room.DepartedDefinitions)+1)

	defs = append(defs, &Definition{
		ID:        ShortID(),
		Text:      room.CurrentWord.Definition,
		AuthorID:  SYSTEM_AUTHOR_ID,
		IsCorrect: true,
		VoterIDs:  make([]string, 0),
	})

	for _, p := range room.Players {
		defs = append(defs, &Definition{
			ID:       ShortID(),
			Text:     p.PendingDefinition,
			AuthorID: p.ID,
			VoterIDs: make([]string, 0),
		})
	}

	// 中途退出玩家已提交的释义仍参与本轮
	defs = append(defs, room.DepartedDefinitions...)
	room.DepartedDefinitions = make([]*Definition, 0)

	rand.Shuffle(len(defs), func(i, j int) {
		defs[i], defs[j] = defs[j], defs[i]
	})

	room.Definitions = defs

	for _, p := range room.Players {
		p.HasVoted = false
		p.PendingVote = ""
	}

	room.Phase = PHASE_VOTING

	zap.L().Info(
		"进入投票阶段",
		zap.String("room_id", room.ID),
		zap.Int("definitions", len(defs)),
	)

	return []Event{
		NewEvent(EVT_VOTING_STARTED, VotingStartedPayload{
			Round:       room.CurrentRound,
			Definitions: room.SanitizedDefinitions(),
		}),
	}
}

// 最后一张票落下时结算本轮并归档
func endRound(room *Room) []Event {
	result := settleRound(room)

	room.History = append(room.History, result)
	room.Phase = PHASE_RESULTS

	zap.L().Info(
		"本轮结束",
		zap.String("room_id", room.ID),
		zap.Int("round", result.Round),
	)

	return []Event{NewEvent(EVT_ROUND_ENDED, result)}
}

func (p *Processor) handleLeave(room *Room, req *LeaveRoomRequest) ([]Event, error) {
	player := room.FindPlayer(req.PlayerID)
	if player == nil {
		return nil, ErrUnknownPlayer
	}

	for i, rp := range room.Players {
		if rp.ID == player.ID {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			break
		}
	}

	// 编写阶段已提交的释义保留下来，进入投票时仍参与本轮；
	// 投票阶段已投出的票不回收。退出者本人不再参与计分。
	if room.Phase == PHASE_DEFINING && player.HasSubmitted {
		room.DepartedDefinitions = append(room.DepartedDefinitions, &Definition{
			ID:       ShortID(),
			Text:     player.PendingDefinition,
			AuthorID: player.ID,
			VoterIDs: make([]string, 0),
		})
	}

	zap.L().Info(
		"玩家退出房间",
		zap.String("room_id", room.ID),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
	)

	events := []Event{
		NewEvent(EVT_ROOM_UPDATED, nil),
		NewEvent(EVT_PLAYER_LEFT, PlayerLeftPayload{
			PlayerID:   player.ID,
			PlayerName: player.Name,
		}),
	}

	// 退出者可能正是全场在等的最后一人，补查完成条件防止房间卡死
	if len(room.Players) > 0 {
		switch room.Phase {
		case PHASE_DEFINING:
			if room.AllSubmitted() {
				events = append(events, beginVoting(room)...)
			}
		case PHASE_VOTING:
			if room.AllVoted() {
				events = append(events, endRound(room)...)
			}
		}
	}

	return events, nil
}

func removeVoter(voterIDs []string, playerID string) []string {
	filtered := voterIDs[:0]

	for _, id := range voterIDs {
		if id != playerID {
			filtered = append(filtered, id)
		}
	}

	return filtered
}
