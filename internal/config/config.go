// Package config 聚合 CLI 的全部可调参数：TOML 配置文件为主，
// .env / 环境变量覆盖少量敏感项（钱包 PEM 路径等）。
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

// Config 应用配置
type Config struct {
	// Network 目标网络：prd / testing / development
	Network string `toml:"network"`
	// ICHost IC 网关地址
	ICHost string `toml:"ic_host"`
	// OdinAPIURL 交易平台 REST API 基地址
	OdinAPIURL string `toml:"odin_api_url"`
	// WalletPEMPath 付费身份的私钥 PEM 路径，留空则不带钱包（无法支付签名费）
	WalletPEMPath string `toml:"wallet_pem_path"`
	// SessionDir 会话缓存目录
	SessionDir string `toml:"session_dir"`
	// CacheSessions 是否启用会话缓存
	CacheSessions bool `toml:"cache_sessions"`
	// MaxWorkers 批量登录并发上限
	MaxWorkers int `toml:"max_workers"`
	// LogLevel zerolog 日志级别
	LogLevel string `toml:"log_level"`
}

// Default 默认配置
func Default() Config {
	return Config{
		Network:       string(NetworkPrd),
		ICHost:        defaultICHost,
		OdinAPIURL:    defaultOdinAPIURL,
		SessionDir:    ".",
		CacheSessions: true,
		MaxWorkers:    5,
		LogLevel:      "info",
	}
}

// Load 读取配置：默认值 <- TOML 文件（可选）<- .env <- 环境变量
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	// .env 不强制存在
	_ = gotenv.Load()

	applyEnv(&cfg)

	if _, err := ParseNetwork(cfg.Network); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ODIN_NETWORK"); v != "" {
		cfg.Network = v
	}
	if v := os.Getenv("ODIN_IC_HOST"); v != "" {
		cfg.ICHost = v
	}
	if v := os.Getenv("ODIN_API_URL"); v != "" {
		cfg.OdinAPIURL = v
	}
	if v := os.Getenv("ODIN_WALLET_PEM"); v != "" {
		cfg.WalletPEMPath = v
	}
	if v := os.Getenv("ODIN_SESSION_DIR"); v != "" {
		cfg.SessionDir = v
	}
	if v := os.Getenv("ODIN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
