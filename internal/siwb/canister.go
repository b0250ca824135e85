package siwb

import (
	"context"

	"github.com/aviate-labs/agent-go"
	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LoginDetails siwb_login 成功返回的内容
type LoginDetails struct {
	Expiration         uint64 `ic:"expiration"`
	UserCanisterPubkey []byte `ic:"user_canister_pubkey"`
}

// CanisterDelegation canister 侧的 delegation 记录
type CanisterDelegation struct {
	Pubkey     []byte                `ic:"pubkey"`
	Expiration uint64                `ic:"expiration"`
	Targets    *[]principal.Principal `ic:"targets"`
}

// CanisterSignedDelegation delegation + canister 签名
type CanisterSignedDelegation struct {
	Delegation CanisterDelegation `ic:"delegation"`
	Signature  []byte             `ic:"signature"`
}

// SignMessageType 登录时声明的签名方案。Taproot 地址走 Bip322Simple。
type SignMessageType struct {
	ECDSA        *idl.Null `ic:"ECDSA,variant"`
	Bip322Simple *idl.Null `ic:"Bip322Simple,variant"`
}

type prepareLoginResult struct {
	Ok  *string `ic:"Ok,variant"`
	Err *string `ic:"Err,variant"`
}

type loginResult struct {
	Ok  *LoginDetails `ic:"Ok,variant"`
	Err *string       `ic:"Err,variant"`
}

type delegationResult struct {
	Ok  *CanisterSignedDelegation `ic:"Ok,variant"`
	Err *string                   `ic:"Err,variant"`
}

// Canister SIWB canister 的三步登录接口
type Canister interface {
	// PrepareLogin 返回待签名的 challenge 文本
	PrepareLogin(ctx context.Context, address string) (string, error)
	// Login 提交 BIP322 签名和签名者公钥，返回 user canister pubkey 和会话过期时间
	Login(ctx context.Context, signature, address, pubkeyHex string, sessionPubkey []byte) (*LoginDetails, error)
	// GetDelegation 取回 canister 为会话密钥签发的 delegation
	GetDelegation(ctx context.Context, address string, sessionPubkey []byte, expiration uint64) (*CanisterSignedDelegation, error)
}

// CanisterClient 匿名身份访问 SIWB canister。
// prepare/get_delegation 是 query，login 是 update。
type CanisterClient struct {
	agent      *agent.Agent
	canisterID principal.Principal
	log        zerolog.Logger
}

// NewCanisterClient 创建 SIWB canister 客户端
func NewCanisterClient(a *agent.Agent, canisterID principal.Principal, log zerolog.Logger) *CanisterClient {
	return &CanisterClient{
		agent:      a,
		canisterID: canisterID,
		log:        log.With().Str("component", "siwb_canister").Str("canister_id", canisterID.Encode()).Logger(),
	}
}

func (c *CanisterClient) PrepareLogin(ctx context.Context, address string) (string, error) {
	c.log.Debug().Str("address", address).Msg("Preparing SIWB login")

	var res prepareLoginResult
	if err := c.agent.Query(c.canisterID, "siwb_prepare_login", []any{address}, []any{&res}); err != nil {
		return "", errors.Wrap(err, "siwb_prepare_login call failed")
	}
	if res.Err != nil {
		return "", errors.Errorf("siwb_prepare_login rejected: %s", *res.Err)
	}
	if res.Ok == nil {
		return "", errors.New("siwb_prepare_login returned neither Ok nor Err")
	}
	return *res.Ok, nil
}

func (c *CanisterClient) Login(ctx context.Context, signature, address, pubkeyHex string, sessionPubkey []byte) (*LoginDetails, error) {
	c.log.Debug().Str("address", address).Msg("Submitting SIWB login")

	scheme := SignMessageType{Bip322Simple: new(idl.Null)}
	var res loginResult
	if err := c.agent.Call(c.canisterID, "siwb_login",
		[]any{signature, address, pubkeyHex, sessionPubkey, scheme}, []any{&res}); err != nil {
		return nil, errors.Wrap(err, "siwb_login call failed")
	}
	if res.Err != nil {
		return nil, errors.Errorf("siwb_login rejected: %s", *res.Err)
	}
	if res.Ok == nil {
		return nil, errors.New("siwb_login returned neither Ok nor Err")
	}
	return res.Ok, nil
}

func (c *CanisterClient) GetDelegation(ctx context.Context, address string, sessionPubkey []byte, expiration uint64) (*CanisterSignedDelegation, error) {
	var res delegationResult
	if err := c.agent.Query(c.canisterID, "siwb_get_delegation",
		[]any{address, sessionPubkey, expiration}, []any{&res}); err != nil {
		return nil, errors.Wrap(err, "siwb_get_delegation call failed")
	}
	if res.Err != nil {
		return nil, errors.Errorf("siwb_get_delegation rejected: %s", *res.Err)
	}
	if res.Ok == nil {
		return nil, errors.New("siwb_get_delegation returned neither Ok nor Err")
	}
	return res.Ok, nil
}
