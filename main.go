package main

import (
	"fmt"

	"word-bluff-be/internal/api/http"
	"word-bluff-be/internal/config"
	"word-bluff-be/internal/logger"
	"word-bluff-be/internal/service"
	"word-bluff-be/internal/state"
	"word-bluff-be/internal/wordbank"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

	// 加载词库，空词库在这里直接失败
	words, err := wordbank.Load(cfg.WordsFile)
	if err != nil {
		panic(fmt.Errorf("加载词库失败: %w", err))
	}

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		service.NewRoomService(cfg, words),
	)

	// 启动服务器
	http.RunServer(appState)
}
