package game

import "errors"

// 所有动作失败都以这里的哨兵错误返回给调用方，
// 边界层通过 errors.Is 转换为各自传输层的表示
var (
	ErrRoomNotFound      = errors.New("房间不存在")
	ErrInvalidPhase      = errors.New("当前阶段不支持该请求")
	ErrNameTaken         = errors.New("名称已被占用")
	ErrRoomFull          = errors.New("房间已满")
	ErrUnknownPlayer     = errors.New("玩家不存在")
	ErrAlreadySubmitted  = errors.New("你已提交过释义，不能重复提交")
	ErrAlreadyVoted      = errors.New("你已投票，不能重复投票")
	ErrInvalidTarget     = errors.New("投票目标不存在")
	ErrEmptyDefinition   = errors.New("释义不能为空")
	ErrDefinitionTooLong = errors.New("释义超过长度上限")

	// 仅在启动加载词库时出现，属于致命配置错误
	ErrEmptyCatalog = errors.New("词库为空")
)
