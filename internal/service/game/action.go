package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_JOIN_ROOM         = "JoinRoom"
	REQ_START_GAME        = "StartGame"
	REQ_SUBMIT_DEFINITION = "SubmitDefinition"
	REQ_SUBMIT_VOTE       = "SubmitVote"
	REQ_NEXT_ROUND        = "NextRound"
	REQ_LEAVE_ROOM        = "LeaveRoom"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
	// 携带已有的玩家 ID 时视为同名重入，幂等返回原玩家
	PlayerID string `json:"player_id,omitempty"`
}

type StartGameRequest struct {
	PlayerID string `json:"player_id"`
}

type SubmitDefinitionRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type SubmitVoteRequest struct {
	PlayerID     string `json:"player_id"`
	DefinitionID string `json:"definition_id"`
}

type NextRoundRequest struct {
	PlayerID string `json:"player_id"`
}

type LeaveRoomRequest struct {
	PlayerID string `json:"player_id"`
}

func TryUnwrapJoinRoomRequest(wrapper RequestWrapper) *JoinRoomRequest {
	if wrapper.ReqType != REQ_JOIN_ROOM {
		return nil
	}

	var joinRoomRequest JoinRoomRequest

	err := json.Unmarshal(wrapper.Data, &joinRoomRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap JoinRoomRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &joinRoomRequest
}

func TryUnwrapStartGameRequest(wrapper RequestWrapper) *StartGameRequest {
	if wrapper.ReqType != REQ_START_GAME {
		return nil
	}

	var startGameRequest StartGameRequest

	err := json.Unmarshal(wrapper.Data, &startGameRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap StartGameRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &startGameRequest
}

func TryUnwrapSubmitDefinitionRequest(wrapper RequestWrapper) *SubmitDefinitionRequest {
	if wrapper.ReqType != REQ_SUBMIT_DEFINITION {
		return nil
	}

	var submitDefinitionRequest SubmitDefinitionRequest

	err := json.Unmarshal(wrapper.Data, &submitDefinitionRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap SubmitDefinitionRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &submitDefinitionRequest
}

func TryUnwrapSubmitVoteRequest(wrapper RequestWrapper) *SubmitVoteRequest {
	if wrapper.ReqType != REQ_SUBMIT_VOTE {
		return nil
	}

	var submitVoteRequest SubmitVoteRequest

	err := json.Unmarshal(wrapper.Data, &submitVoteRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap SubmitVoteRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &submitVoteRequest
}

func TryUnwrapNextRoundRequest(wrapper RequestWrapper) *NextRoundRequest {
	if wrapper.ReqType != REQ_NEXT_ROUND {
		return nil
	}

	var nextRoundRequest NextRoundRequest

	err := json.Unmarshal(wrapper.Data, &nextRoundRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap NextRoundRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &nextRoundRequest
}

func TryUnwrapLeaveRoomRequest(wrapper RequestWrapper) *LeaveRoomRequest {
	if wrapper.ReqType != REQ_LEAVE_ROOM {
		return nil
	}

	var leaveRoomRequest LeaveRoomRequest

	err := json.Unmarshal(wrapper.Data, &leaveRoomRequest)
	if err != nil {
		zap.L().Error(
			"Failed to unwrap LeaveRoomRequest",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &leaveRoomRequest
}
