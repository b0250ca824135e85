package signer

import (
	"context"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Canister ckSigner canister 的调用接口。
// query 调用免费；update 调用（getPublicKey / sign）配置了 fee token 时收费。
type Canister interface {
	GetPublicKeyQuery(ctx context.Context, botName string) (*PublicKeyResult, error)
	GetPublicKey(ctx context.Context, botName string, payment *Payment) (*PublicKeyResult, error)
	Sign(ctx context.Context, botName string, message []byte, payment *Payment) (*SignResult, error)
	GetFeeTokens(ctx context.Context) (*FeeTokensResult, error)
}

// CanisterClient 基于 agent-go 的 ckSigner 客户端
type CanisterClient struct {
	agent      *agent.Agent
	canisterID principal.Principal
	log        zerolog.Logger
}

// NewCanisterClient 创建 ckSigner 客户端。agent 必须携带钱包身份
// （付费时 ledger approve 的 owner 就是这个身份）。
func NewCanisterClient(a *agent.Agent, canisterID principal.Principal, log zerolog.Logger) *CanisterClient {
	return &CanisterClient{
		agent:      a,
		canisterID: canisterID,
		log:        log.With().Str("component", "cksigner").Logger(),
	}
}

// ckSigner 的每个方法都只接收一个 record 参数，不是裸位置参数
type publicKeyQueryArgs struct {
	BotName string `ic:"botName"`
}

type publicKeyArgs struct {
	BotName string   `ic:"botName"`
	Payment *Payment `ic:"payment"` // opt
}

type signArgs struct {
	BotName string   `ic:"botName"`
	Message []byte   `ic:"message"`
	Payment *Payment `ic:"payment"` // opt
}

// GetPublicKeyQuery 免费 query，公钥已缓存时直接命中
func (c *CanisterClient) GetPublicKeyQuery(_ context.Context, botName string) (*PublicKeyResult, error) {
	c.log.Debug().Str("bot_name", botName).Msg("Calling getPublicKeyQuery (free query)")

	var out PublicKeyResult
	if err := c.agent.Query(c.canisterID, "getPublicKeyQuery",
		[]any{publicKeyQueryArgs{BotName: botName}}, []any{&out}); err != nil {
		return nil, errors.Wrap(err, "getPublicKeyQuery call failed")
	}
	return &out, nil
}

// GetPublicKey 付费 update，缓存未命中时填充公钥缓存
func (c *CanisterClient) GetPublicKey(_ context.Context, botName string, payment *Payment) (*PublicKeyResult, error) {
	c.log.Debug().Str("bot_name", botName).Bool("with_payment", payment != nil).
		Msg("Calling getPublicKey (update)")

	var out PublicKeyResult
	if err := c.agent.Call(c.canisterID, "getPublicKey",
		[]any{publicKeyArgs{BotName: botName, Payment: payment}}, []any{&out}); err != nil {
		return nil, errors.Wrap(err, "getPublicKey call failed")
	}
	return &out, nil
}

// Sign 付费 update，threshold Schnorr (BIP340) 签名 32 字节消息哈希
func (c *CanisterClient) Sign(_ context.Context, botName string, message []byte, payment *Payment) (*SignResult, error) {
	c.log.Debug().Str("bot_name", botName).Int("message_len", len(message)).
		Bool("with_payment", payment != nil).Msg("Calling sign (update)")

	var out SignResult
	if err := c.agent.Call(c.canisterID, "sign",
		[]any{signArgs{BotName: botName, Message: message, Payment: payment}}, []any{&out}); err != nil {
		return nil, errors.Wrap(err, "sign call failed")
	}
	return &out, nil
}

// GetFeeTokens 免费 query，读取收费配置
func (c *CanisterClient) GetFeeTokens(_ context.Context) (*FeeTokensResult, error) {
	var out FeeTokensResult
	if err := c.agent.Query(c.canisterID, "getFeeTokens", []any{}, []any{&out}); err != nil {
		return nil, errors.Wrap(err, "getFeeTokens call failed")
	}
	return &out, nil
}
