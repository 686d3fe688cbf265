package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// 词库数据文件路径
	WordsFile string `mapstructure:"words_file"`

	// 游戏规则常量，均可通过配置覆盖
	TotalRounds      int `mapstructure:"total_rounds"`
	MaxPlayers       int `mapstructure:"max_players"`
	MaxDefinitionLen int `mapstructure:"max_definition_len"`

	// 空闲房间的存活时间（分钟）
	RoomTTLMinutes int `mapstructure:"room_ttl_minutes"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	// 游戏规则默认值
	v.SetDefault("words_file", "data/words.json")
	v.SetDefault("total_rounds", 3)
	v.SetDefault("max_players", 4)
	v.SetDefault("max_definition_len", 200)
	v.SetDefault("room_ttl_minutes", 30)

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}
