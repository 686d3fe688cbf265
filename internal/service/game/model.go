package game

import "time"

// 游戏总体分为 5 个阶段，分别是：
// 1. 等待阶段（Waiting）：玩家可以加入房间，等待开始游戏
// 2. 编写阶段（Defining）：每个玩家为本轮词语编写一条假释义
// 3. 投票阶段（Voting）：玩家从混入了正确释义的列表中投票
// 4. 结算阶段（Results）：公布本轮得分，等待进入下一轮
// 5. 结束阶段（Finished）：全部轮次完成，游戏结束
const (
	PHASE_WAITING  = "Waiting"
	PHASE_DEFINING = "Defining"
	PHASE_VOTING   = "Voting"
	PHASE_RESULTS  = "Results"
	PHASE_FINISHED = "Finished"
)

// 正确释义的作者哨兵值，不对应任何玩家
const SYSTEM_AUTHOR_ID = "system"

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`

	// 每轮重置的标记
	HasSubmitted bool `json:"has_submitted"`
	HasVoted     bool `json:"has_voted"`

	// 本轮的待结算内容，每轮清空
	PendingDefinition string `json:"pending_definition,omitempty"`
	PendingVote       string `json:"pending_vote,omitempty"`
}

type Word struct {
	Text       string `json:"text"`
	Definition string `json:"definition"`
}

type Definition struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	AuthorID  string   `json:"author_id,omitempty"`
	IsCorrect bool     `json:"is_correct"`
	VoterIDs  []string `json:"voter_ids"`
}

// 一轮结束后归档的不可变记录
type RoundResult struct {
	Round       int            `json:"round"`
	Word        Word           `json:"word"`
	Definitions []Definition   `json:"definitions"`
	Scores      map[string]int `json:"scores"`
}

// 房间的规则常量，创建时从配置固定下来
type Rules struct {
	TotalRounds      int `json:"total_rounds"`
	MaxPlayers       int `json:"max_players"`
	MaxDefinitionLen int `json:"max_definition_len"`
}

type Room struct {
	ID           string        `json:"id"`
	Phase        string        `json:"phase"`
	Players      []*Player     `json:"players"` // 按加入顺序
	CurrentRound int           `json:"current_round"`
	Rules        Rules         `json:"rules"`
	CurrentWord  *Word         `json:"current_word,omitempty"`
	Definitions  []*Definition `json:"definitions"`
	History      []RoundResult `json:"history"`

	// 已退出玩家在编写阶段留下的释义，进入投票阶段时并入释义列表
	DepartedDefinitions []*Definition `json:"-"`

	// 仅供外部回收器参考，核心不据此自行过期
	LastActivity time.Time `json:"-"`
}

func NewRoom(roomID string, rules Rules) *Room {
	return &Room{
		ID:           roomID,
		Phase:        PHASE_WAITING,
		Players:      make([]*Player, 0, rules.MaxPlayers),
		Rules:        rules,
		Definitions:  make([]*Definition, 0),
		History:      make([]RoundResult, 0),
		LastActivity: time.Now(),
	}
}

func (r *Room) FindPlayer(playerID string) *Player {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}

	return nil
}

func (r *Room) FindPlayerByName(name string) *Player {
	// 名称区分大小写
	for _, p := range r.Players {
		if p.Name == name {
			return p
		}
	}

	return nil
}

func (r *Room) FindDefinition(definitionID string) *Definition {
	for _, d := range r.Definitions {
		if d.ID == definitionID {
			return d
		}
	}

	return nil
}

func (r *Room) AllSubmitted() bool {
	for _, p := range r.Players {
		if !p.HasSubmitted {
			return false
		}
	}

	return true
}

func (r *Room) AllVoted() bool {
	for _, p := range r.Players {
		if !p.HasVoted {
			return false
		}
	}

	return true
}

// 进入新一轮前重置所有玩家的本轮状态
func (r *Room) resetRoundFlags() {
	for _, p := range r.Players {
		p.HasSubmitted = false
		p.HasVoted = false
		p.PendingDefinition = ""
		p.PendingVote = ""
	}
}

// Clone 返回房间的深拷贝快照，供只读路径使用
func (r *Room) Clone() *Room {
	clone := *r

	clone.Players = make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		cp := *p
		clone.Players = append(clone.Players, &cp)
	}

	if r.CurrentWord != nil {
		w := *r.CurrentWord
		clone.CurrentWord = &w
	}

	clone.Definitions = cloneDefinitions(r.Definitions)
	clone.DepartedDefinitions = cloneDefinitions(r.DepartedDefinitions)

	clone.History = make([]RoundResult, 0, len(r.History))
	for _, rr := range r.History {
		clone.History = append(clone.History, cloneRoundResult(rr))
	}

	return &clone
}

// PublicView 在深拷贝的基础上抹去客户端不应看到的信息：
// 投票阶段隐藏释义的作者和正误标记，编写阶段隐藏他人的草稿，
// 未结算时隐藏当前词语的正确释义
func (r *Room) PublicView() *Room {
	view := r.Clone()

	revealed := view.Phase == PHASE_RESULTS || view.Phase == PHASE_FINISHED

	if !revealed {
		if view.CurrentWord != nil {
			view.CurrentWord.Definition = ""
		}

		for _, d := range view.Definitions {
			d.AuthorID = ""
			d.IsCorrect = false
		}

		for _, p := range view.Players {
			p.PendingDefinition = ""
			p.PendingVote = ""
		}
	}

	return view
}

// SanitizedDefinitions 返回投票阶段展示给玩家的匿名释义列表
func (r *Room) SanitizedDefinitions() []Definition {
	defs := make([]Definition, 0, len(r.Definitions))

	for _, d := range r.Definitions {
		defs = append(defs, Definition{
			ID:       d.ID,
			Text:     d.Text,
			VoterIDs: make([]string, 0),
		})
	}

	return defs
}

func cloneDefinitions(src []*Definition) []*Definition {
	dst := make([]*Definition, 0, len(src))

	for _, d := range src {
		cd := *d
		cd.VoterIDs = append([]string{}, d.VoterIDs...)
		dst = append(dst, &cd)
	}

	return dst
}

func cloneRoundResult(rr RoundResult) RoundResult {
	cloned := rr

	cloned.Definitions = make([]Definition, 0, len(rr.Definitions))
	for _, d := range rr.Definitions {
		cd := d
		cd.VoterIDs = append([]string{}, d.VoterIDs...)
		cloned.Definitions = append(cloned.Definitions, cd)
	}

	cloned.Scores = make(map[string]int, len(rr.Scores))
	for id, delta := range rr.Scores {
		cloned.Scores[id] = delta
	}

	return cloned
}
