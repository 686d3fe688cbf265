package game

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

type fakeWordSource struct {
	idx int
}

func (f *fakeWordSource) Draw() (Word, error) {
	f.idx++
	return Word{
		Text:       fmt.Sprintf("词语%d", f.idx),
		Definition: fmt.Sprintf("正确释义%d", f.idx),
	}, nil
}

func testRules() Rules {
	return Rules{
		TotalRounds:      3,
		MaxPlayers:       4,
		MaxDefinitionLen: 200,
	}
}

func newTestProcessor() *Processor {
	return NewProcessor(&fakeWordSource{})
}

func joinWrapper(name string) RequestWrapper {
	return RequestWrapper{
		ReqType: REQ_JOIN_ROOM,
		Data:    mustMarshal(JoinRoomRequest{PlayerName: name}),
	}
}

func mustJoin(t *testing.T, proc *Processor, room *Room, name string) *Player {
	t.Helper()

	if _, err := proc.Process(room, joinWrapper(name)); err != nil {
		t.Fatalf("join %q should succeed, got: %v", name, err)
	}

	player := room.FindPlayerByName(name)
	if player == nil {
		t.Fatalf("player %q not found after join", name)
	}

	return player
}

func mustStart(t *testing.T, proc *Processor, room *Room) {
	t.Helper()

	req := RequestWrapper{
		ReqType: REQ_START_GAME,
		Data:    mustMarshal(StartGameRequest{PlayerID: room.Players[0].ID}),
	}

	if _, err := proc.Process(room, req); err != nil {
		t.Fatalf("start game should succeed, got: %v", err)
	}
}

func mustSubmit(t *testing.T, proc *Processor, room *Room, playerID, text string) {
	t.Helper()

	req := RequestWrapper{
		ReqType: REQ_SUBMIT_DEFINITION,
		Data:    mustMarshal(SubmitDefinitionRequest{PlayerID: playerID, Text: text}),
	}

	if _, err := proc.Process(room, req); err != nil {
		t.Fatalf("submit definition for %s should succeed, got: %v", playerID, err)
	}
}

func mustVote(t *testing.T, proc *Processor, room *Room, playerID, definitionID string) {
	t.Helper()

	req := RequestWrapper{
		ReqType: REQ_SUBMIT_VOTE,
		Data:    mustMarshal(SubmitVoteRequest{PlayerID: playerID, DefinitionID: definitionID}),
	}

	if _, err := proc.Process(room, req); err != nil {
		t.Fatalf("vote by %s should succeed, got: %v", playerID, err)
	}
}

func correctDefinition(t *testing.T, room *Room) *Definition {
	t.Helper()

	for _, d := range room.Definitions {
		if d.IsCorrect {
			return d
		}
	}

	t.Fatalf("no correct definition in room")
	return nil
}

func definitionBy(t *testing.T, room *Room, authorID string) *Definition {
	t.Helper()

	for _, d := range room.Definitions {
		if d.AuthorID == authorID {
			return d
		}
	}

	t.Fatalf("no definition authored by %s", authorID)
	return nil
}

func TestJoinThenStartGame(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")

	// 只有一名玩家时不允许开始
	startReq := RequestWrapper{
		ReqType: REQ_START_GAME,
		Data:    mustMarshal(StartGameRequest{PlayerID: ana.ID}),
	}

	if _, err := proc.Process(room, startReq); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("start with one player should fail with ErrInvalidPhase, got: %v", err)
	}

	if room.Phase != PHASE_WAITING {
		t.Fatalf("phase should stay Waiting, got %q", room.Phase)
	}

	mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)

	if room.Phase != PHASE_DEFINING {
		t.Fatalf("phase should be Defining, got %q", room.Phase)
	}

	if room.CurrentRound != 1 {
		t.Fatalf("round should be 1, got %d", room.CurrentRound)
	}

	if room.CurrentWord == nil {
		t.Fatalf("current word should be set after start")
	}
}

func TestJoinRejectsDuplicateName(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	mustJoin(t, proc, room, "Ana")

	if _, err := proc.Process(room, joinWrapper("Ana")); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("duplicate name should fail with ErrNameTaken, got: %v", err)
	}

	if len(room.Players) != 1 {
		t.Fatalf("roster should still have 1 player, got %d", len(room.Players))
	}
}

func TestJoinRejectsWhenRoomFull(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	for i := 0; i < room.Rules.MaxPlayers; i++ {
		mustJoin(t, proc, room, fmt.Sprintf("P%d", i))
	}

	if _, err := proc.Process(room, joinWrapper("Extra")); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("join into full room should fail with ErrRoomFull, got: %v", err)
	}
}

func TestJoinIsIdempotentForSamePlayer(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")

	rejoin := RequestWrapper{
		ReqType: REQ_JOIN_ROOM,
		Data: mustMarshal(JoinRoomRequest{
			PlayerName: "Ana",
			PlayerID:   ana.ID,
		}),
	}

	events, err := proc.Process(room, rejoin)
	if err != nil {
		t.Fatalf("rejoin with own id should succeed, got: %v", err)
	}

	if len(room.Players) != 1 {
		t.Fatalf("rejoin must not duplicate the player, roster len %d", len(room.Players))
	}

	found := false
	for _, evt := range events {
		if evt.Type == EVT_PLAYER_JOINED {
			joined, ok := evt.Data.(Player)
			if !ok {
				t.Fatalf("PlayerJoined payload has wrong type %T", evt.Data)
			}
			if joined.ID != ana.ID {
				t.Fatalf("rejoin should return the original id %s, got %s", ana.ID, joined.ID)
			}
			found = true
		}
	}

	if !found {
		t.Fatalf("rejoin should emit PlayerJoined with the existing player")
	}
}

func TestAllSubmittedStartsVoting(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)

	mustSubmit(t, proc, room, ana.ID, "一种罕见的候鸟")

	if room.Phase != PHASE_DEFINING {
		t.Fatalf("phase should stay Defining until all submitted, got %q", room.Phase)
	}

	mustSubmit(t, proc, room, bea.ID, "古代的一种刑罚")

	if room.Phase != PHASE_VOTING {
		t.Fatalf("phase should auto-advance to Voting, got %q", room.Phase)
	}

	// 两条玩家释义 + 一条植入的正确释义
	if len(room.Definitions) != 3 {
		t.Fatalf("want 3 definitions, got %d", len(room.Definitions))
	}

	correctCount := 0
	for _, d := range room.Definitions {
		if d.IsCorrect {
			correctCount++
			if d.AuthorID != SYSTEM_AUTHOR_ID {
				t.Fatalf("correct definition should be authored by system, got %q", d.AuthorID)
			}
		}
	}

	if correctCount != 1 {
		t.Fatalf("want exactly 1 correct definition, got %d", correctCount)
	}
}

func TestVotingCorrectDefinitionScoresOne(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)
	mustSubmit(t, proc, room, ana.ID, "释义甲")
	mustSubmit(t, proc, room, bea.ID, "释义乙")

	correct := correctDefinition(t, room)

	mustVote(t, proc, room, ana.ID, correct.ID)
	mustVote(t, proc, room, bea.ID, correct.ID)

	if room.Phase != PHASE_RESULTS {
		t.Fatalf("phase should be Results after all voted, got %q", room.Phase)
	}

	if len(room.History) != 1 {
		t.Fatalf("history should have 1 entry, got %d", len(room.History))
	}

	result := room.History[0]

	for _, p := range room.Players {
		if result.Scores[p.ID] != 1 {
			t.Fatalf("player %s delta should be 1, got %d", p.Name, result.Scores[p.ID])
		}
		if p.Score != 1 {
			t.Fatalf("player %s total should be 1, got %d", p.Name, p.Score)
		}
	}
}

func TestSelfVoteEarnsNothing(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)
	mustSubmit(t, proc, room, ana.ID, "释义甲")
	mustSubmit(t, proc, room, bea.ID, "释义乙")

	beaDef := definitionBy(t, room, bea.ID)

	// Ana 投给 Bea 的释义，Bea 投给自己的释义
	mustVote(t, proc, room, ana.ID, beaDef.ID)
	mustVote(t, proc, room, bea.ID, beaDef.ID)

	result := room.History[0]

	// Bea：自投不得分，Ana 的一票 +2
	if result.Scores[bea.ID] != 2 {
		t.Fatalf("Bea delta should be 2, got %d", result.Scores[bea.ID])
	}

	// Ana：投了非正确且非自己的释义，自己的释义无人投
	if result.Scores[ana.ID] != 0 {
		t.Fatalf("Ana delta should be 0, got %d", result.Scores[ana.ID])
	}
}

func TestDuplicateVoteRejectedAndMembershipStable(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustJoin(t, proc, room, "Cai")
	mustStart(t, proc, room)

	for _, p := range room.Players {
		mustSubmit(t, proc, room, p.ID, "释义-"+p.Name)
	}

	beaDef := definitionBy(t, room, bea.ID)
	correct := correctDefinition(t, room)

	mustVote(t, proc, room, ana.ID, beaDef.ID)

	dupReq := RequestWrapper{
		ReqType: REQ_SUBMIT_VOTE,
		Data:    mustMarshal(SubmitVoteRequest{PlayerID: ana.ID, DefinitionID: correct.ID}),
	}

	if _, err := proc.Process(room, dupReq); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second vote should fail with ErrAlreadyVoted, got: %v", err)
	}

	// 任何时刻 Ana 在所有释义的投票者集合中恰好出现一次
	memberships := 0
	for _, d := range room.Definitions {
		for _, voterID := range d.VoterIDs {
			if voterID == ana.ID {
				memberships++
			}
		}
	}

	if memberships != 1 {
		t.Fatalf("Ana should appear in exactly one voter set, got %d", memberships)
	}
}

func TestDuplicateSubmitRejected(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)

	mustSubmit(t, proc, room, ana.ID, "第一份")

	dupReq := RequestWrapper{
		ReqType: REQ_SUBMIT_DEFINITION,
		Data:    mustMarshal(SubmitDefinitionRequest{PlayerID: ana.ID, Text: "第二份"}),
	}

	if _, err := proc.Process(room, dupReq); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("duplicate submit should fail with ErrAlreadySubmitted, got: %v", err)
	}

	if ana.PendingDefinition != "第一份" {
		t.Fatalf("first submission should win, got %q", ana.PendingDefinition)
	}
}

func TestSubmitValidation(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())
	room.Rules.MaxDefinitionLen = 10

	ana := mustJoin(t, proc, room, "Ana")
	mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)

	emptyReq := RequestWrapper{
		ReqType: REQ_SUBMIT_DEFINITION,
		Data:    mustMarshal(SubmitDefinitionRequest{PlayerID: ana.ID, Text: "   "}),
	}

	if _, err := proc.Process(room, emptyReq); !errors.Is(err, ErrEmptyDefinition) {
		t.Fatalf("blank text should fail with ErrEmptyDefinition, got: %v", err)
	}

	longReq := RequestWrapper{
		ReqType: REQ_SUBMIT_DEFINITION,
		Data:    mustMarshal(SubmitDefinitionRequest{PlayerID: ana.ID, Text: "这是一条明显超过十个字符上限的释义"}),
	}

	if _, err := proc.Process(room, longReq); !errors.Is(err, ErrDefinitionTooLong) {
		t.Fatalf("overlong text should fail with ErrDefinitionTooLong, got: %v", err)
	}

	unknownReq := RequestWrapper{
		ReqType: REQ_SUBMIT_DEFINITION,
		Data:    mustMarshal(SubmitDefinitionRequest{PlayerID: "nobody", Text: "正常释义"}),
	}

	if _, err := proc.Process(room, unknownReq); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("unknown player should fail with ErrUnknownPlayer, got: %v", err)
	}
}

func TestVoteInvalidTarget(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)
	mustSubmit(t, proc, room, ana.ID, "释义甲")
	mustSubmit(t, proc, room, bea.ID, "释义乙")

	badReq := RequestWrapper{
		ReqType: REQ_SUBMIT_VOTE,
		Data:    mustMarshal(SubmitVoteRequest{PlayerID: ana.ID, DefinitionID: "no-such-def"}),
	}

	if _, err := proc.Process(room, badReq); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("vote for missing definition should fail with ErrInvalidTarget, got: %v", err)
	}
}

func TestNextRoundAdvancesAndFinishes(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())
	room.Rules.TotalRounds = 2

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)

	playRound := func() {
		mustSubmit(t, proc, room, ana.ID, "释义甲")
		mustSubmit(t, proc, room, bea.ID, "释义乙")
		correct := correctDefinition(t, room)
		mustVote(t, proc, room, ana.ID, correct.ID)
		mustVote(t, proc, room, bea.ID, correct.ID)
	}

	playRound()

	nextReq := RequestWrapper{
		ReqType: REQ_NEXT_ROUND,
		Data:    mustMarshal(NextRoundRequest{PlayerID: ana.ID}),
	}

	if _, err := proc.Process(room, nextReq); err != nil {
		t.Fatalf("next round should succeed, got: %v", err)
	}

	if room.Phase != PHASE_DEFINING || room.CurrentRound != 2 {
		t.Fatalf("want Defining round 2, got %q round %d", room.Phase, room.CurrentRound)
	}

	playRound()

	events, err := proc.Process(room, nextReq)
	if err != nil {
		t.Fatalf("final next round should succeed, got: %v", err)
	}

	if room.Phase != PHASE_FINISHED {
		t.Fatalf("phase should be Finished, got %q", room.Phase)
	}

	ended := false
	for _, evt := range events {
		if evt.Type == EVT_GAME_ENDED {
			ended = true
			payload, ok := evt.Data.(GameEndedPayload)
			if !ok {
				t.Fatalf("GameEnded payload has wrong type %T", evt.Data)
			}
			if payload.FinalScores[ana.ID] != ana.Score {
				t.Fatalf("final score mismatch for Ana")
			}
		}
	}

	if !ended {
		t.Fatalf("finishing should emit GameEnded")
	}

	// 终态：任何动作都被拒绝
	for _, wrapper := range []RequestWrapper{
		{ReqType: REQ_START_GAME, Data: mustMarshal(StartGameRequest{PlayerID: ana.ID})},
		{ReqType: REQ_SUBMIT_DEFINITION, Data: mustMarshal(SubmitDefinitionRequest{PlayerID: ana.ID, Text: "x"})},
		{ReqType: REQ_SUBMIT_VOTE, Data: mustMarshal(SubmitVoteRequest{PlayerID: ana.ID, DefinitionID: "x"})},
		{ReqType: REQ_NEXT_ROUND, Data: mustMarshal(NextRoundRequest{PlayerID: ana.ID})},
	} {
		if _, err := proc.Process(room, wrapper); !errors.Is(err, ErrInvalidPhase) {
			t.Fatalf("action %s after finish should fail with ErrInvalidPhase, got: %v", wrapper.ReqType, err)
		}
	}
}

func TestRejectedActionLeavesRoomUntouched(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	mustStart(t, proc, room)
	mustSubmit(t, proc, room, ana.ID, "释义甲")

	before := room.Clone()

	rejected := []RequestWrapper{
		// 错误阶段的投票
		{ReqType: REQ_SUBMIT_VOTE, Data: mustMarshal(SubmitVoteRequest{PlayerID: ana.ID, DefinitionID: "x"})},
		// 重复提交
		{ReqType: REQ_SUBMIT_DEFINITION, Data: mustMarshal(SubmitDefinitionRequest{PlayerID: ana.ID, Text: "again"})},
		// 未知玩家
		{ReqType: REQ_SUBMIT_DEFINITION, Data: mustMarshal(SubmitDefinitionRequest{PlayerID: "ghost", Text: "x"})},
		// 空释义
		{ReqType: REQ_SUBMIT_DEFINITION, Data: mustMarshal(SubmitDefinitionRequest{PlayerID: bea.ID, Text: ""})},
	}

	for _, wrapper := range rejected {
		if _, err := proc.Process(room, wrapper); err == nil {
			t.Fatalf("action %s should have been rejected", wrapper.ReqType)
		}

		if !reflect.DeepEqual(before, room.Clone()) {
			t.Fatalf("rejected action %s mutated the room", wrapper.ReqType)
		}
	}
}

func TestLeaveDuringVotingCompletesRound(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	cai := mustJoin(t, proc, room, "Cai")
	mustStart(t, proc, room)

	for _, p := range room.Players {
		mustSubmit(t, proc, room, p.ID, "释义-"+p.Name)
	}

	correct := correctDefinition(t, room)
	mustVote(t, proc, room, ana.ID, correct.ID)
	mustVote(t, proc, room, bea.ID, correct.ID)

	// Cai 是全场在等的最后一人，他的退出应当触发结算
	leaveReq := RequestWrapper{
		ReqType: REQ_LEAVE_ROOM,
		Data:    mustMarshal(LeaveRoomRequest{PlayerID: cai.ID}),
	}

	events, err := proc.Process(room, leaveReq)
	if err != nil {
		t.Fatalf("leave should succeed, got: %v", err)
	}

	if room.Phase != PHASE_RESULTS {
		t.Fatalf("leave of last blocker should settle the round, phase %q", room.Phase)
	}

	roundEnded := false
	for _, evt := range events {
		if evt.Type == EVT_ROUND_ENDED {
			roundEnded = true
		}
	}

	if !roundEnded {
		t.Fatalf("leave that settles the round should emit RoundEnded")
	}

	// 退出者不再出现在计分里
	result := room.History[0]
	if _, ok := result.Scores[cai.ID]; ok {
		t.Fatalf("departed player should not have a score row")
	}
}

func TestLeaveDuringDefiningKeepsSubmittedDefinition(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	ana := mustJoin(t, proc, room, "Ana")
	bea := mustJoin(t, proc, room, "Bea")
	cai := mustJoin(t, proc, room, "Cai")
	mustStart(t, proc, room)

	mustSubmit(t, proc, room, cai.ID, "退出者的释义")

	leaveReq := RequestWrapper{
		ReqType: REQ_LEAVE_ROOM,
		Data:    mustMarshal(LeaveRoomRequest{PlayerID: cai.ID}),
	}

	if _, err := proc.Process(room, leaveReq); err != nil {
		t.Fatalf("leave should succeed, got: %v", err)
	}

	mustSubmit(t, proc, room, ana.ID, "释义甲")
	mustSubmit(t, proc, room, bea.ID, "释义乙")

	if room.Phase != PHASE_VOTING {
		t.Fatalf("phase should be Voting, got %q", room.Phase)
	}

	// 正确释义 + 两名在场玩家 + 退出者留下的释义
	if len(room.Definitions) != 4 {
		t.Fatalf("want 4 definitions, got %d", len(room.Definitions))
	}

	departed := definitionBy(t, room, cai.ID)
	if departed.Text != "退出者的释义" {
		t.Fatalf("departed definition text mismatch: %q", departed.Text)
	}
}

func TestLeaveUnknownPlayerRejected(t *testing.T) {
	proc := newTestProcessor()
	room := NewRoom("room1", testRules())

	mustJoin(t, proc, room, "Ana")

	leaveReq := RequestWrapper{
		ReqType: REQ_LEAVE_ROOM,
		Data:    mustMarshal(LeaveRoomRequest{PlayerID: "ghost"}),
	}

	if _, err := proc.Process(room, leaveReq); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("leave by unknown player should fail with ErrUnknownPlayer, got: %v", err)
	}
}
