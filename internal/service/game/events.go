package game

// 事件类型，由处理器随每次动作返回，交给投递层
// （推送端广播、轮询端对照快照做差异）使用
const (
	EVT_ERROR = "Error"

	EVT_ROOM_UPDATED   = "RoomUpdated"
	EVT_PLAYER_JOINED  = "PlayerJoined"
	EVT_GAME_STARTED   = "GameStarted"
	EVT_ROUND_STARTED  = "RoundStarted"
	EVT_VOTING_STARTED = "VotingStarted"
	EVT_ROUND_ENDED    = "RoundEnded"
	EVT_GAME_ENDED     = "GameEnded"
	EVT_PLAYER_LEFT    = "PlayerLeft"
)

type Event struct {
	Type   string `json:"event_type"`
	Data   any    `json:"data,omitempty"`
	ErrMsg string `json:"error_message,omitempty"`
}

func NewEvent(eventType string, data any) Event {
	return Event{
		Type: eventType,
		Data: data,
	}
}

func NewErrorEvent(errMsg string) Event {
	return Event{
		Type:   EVT_ERROR,
		ErrMsg: errMsg,
	}
}

// RoundStarted 事件只携带词语本身，正确释义在结算前不出现在任何投递内容中
type RoundStartedPayload struct {
	Round    int    `json:"round"`
	WordText string `json:"word_text"`
}

type VotingStartedPayload struct {
	Round       int          `json:"round"`
	Definitions []Definition `json:"definitions"`
}

type GameEndedPayload struct {
	FinalScores map[string]int `json:"final_scores"`
}

type PlayerLeftPayload struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}
