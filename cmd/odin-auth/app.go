package main

import (
	"net/url"
	"os"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/identity"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kashguard/go-odin-auth/internal/config"
	"github.com/kashguard/go-odin-auth/internal/ledger"
	"github.com/kashguard/go-odin-auth/internal/session"
	"github.com/kashguard/go-odin-auth/internal/signer"
	"github.com/kashguard/go-odin-auth/internal/siwb"
)

// app 按配置组装好的全部客户端
type app struct {
	cfg           config.Config
	network       config.Network
	authenticator *siwb.Authenticator
	cache         *session.Cache
	log           zerolog.Logger
}

// newApp 组装认证流水线：ckSigner gate、SIWB canister、平台 API、会话缓存
func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	network, err := config.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}

	host, err := url.Parse(cfg.ICHost)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid IC host %s", cfg.ICHost)
	}

	// ckSigner / ledger 走钱包身份（没配钱包则匿名，免费路径仍可用），
	// SIWB canister 始终匿名。
	walletIdentity, err := loadWalletIdentity(cfg.WalletPEMPath)
	if err != nil {
		return nil, err
	}
	walletAgent, err := agent.New(agent.Config{
		Identity:     walletIdentity,
		ClientConfig: &agent.ClientConfig{Host: host},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wallet agent")
	}
	anonAgent, err := agent.New(agent.Config{
		Identity:     new(identity.AnonymousIdentity),
		ClientConfig: &agent.ClientConfig{Host: host},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create anonymous agent")
	}

	signerID := principal.MustDecode(network.CkSignerCanisterID())
	signerClient := signer.NewCanisterClient(walletAgent, signerID, log)

	// 没有钱包就不给 gate 配 ledger：免费 query 照常，付费路径显式报错
	var feeLedger signer.FeeLedger
	if cfg.WalletPEMPath != "" {
		feeLedger = ledger.NewClient(walletAgent, principal.MustDecode(network.CkBTCLedgerID()), log)
	}
	gate := signer.NewGate(signerClient, feeLedger, signerID, log)

	siwbClient := siwb.NewCanisterClient(anonAgent, principal.MustDecode(network.SiwbCanisterID()), log)
	api := siwb.NewAPIClient(cfg.OdinAPIURL, log)
	cache := session.NewCache(cfg.SessionDir, network.CacheSuffix(), cfg.CacheSessions, api, log)

	return &app{
		cfg:           cfg,
		network:       network,
		authenticator: siwb.NewAuthenticator(gate, siwbClient, api, cache, log),
		cache:         cache,
		log:           log,
	}, nil
}

// loadWalletIdentity 从 PEM 加载付费身份；路径为空时返回匿名身份。
// 先按 Ed25519 解析，失败再按 secp256k1。
func loadWalletIdentity(path string) (identity.Identity, error) {
	if path == "" {
		return new(identity.AnonymousIdentity), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read wallet PEM %s", path)
	}

	if id, err := identity.NewEd25519IdentityFromPEM(data); err == nil {
		return id, nil
	}
	id, err := identity.NewSecp256k1IdentityFromPEM(data)
	if err != nil {
		return nil, errors.Wrap(err, "wallet PEM is neither Ed25519 nor secp256k1")
	}
	return id, nil
}
