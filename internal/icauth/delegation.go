package icauth

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
)

// Delegation 单条 delegation：授权 pubkey 在 expiration（纳秒）之前代表根身份行事
type Delegation struct {
	PubkeyHex  string `json:"pubkey"`
	Expiration uint64 `json:"expiration"`
}

// SignedDelegation delegation + canister 对它的签名
type SignedDelegation struct {
	Delegation   Delegation `json:"delegation"`
	SignatureHex string     `json:"signature"`
}

// DelegationChain delegation 链 + 链的根公钥（user canister pubkey）
type DelegationChain struct {
	Delegations  []SignedDelegation `json:"delegations"`
	PublicKeyHex string             `json:"publicKey"`
}

// RootPublicKey 链的根公钥原始字节
func (c *DelegationChain) RootPublicKey() ([]byte, error) {
	raw, err := hex.DecodeString(c.PublicKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "malformed chain public key")
	}
	return raw, nil
}

// REST API 侧的 delegation JSON，expiration 用 hex 字符串
// （对齐 @dfinity/identity 的序列化格式）
type apiDelegation struct {
	PubkeyHex     string `json:"pubkey"`
	ExpirationHex string `json:"expiration"`
}

type apiSignedDelegation struct {
	Delegation   apiDelegation `json:"delegation"`
	SignatureHex string        `json:"signature"`
}

type apiChain struct {
	Delegations  []apiSignedDelegation `json:"delegations"`
	PublicKeyHex string                `json:"publicKey"`
}

// MarshalAPI 序列化成交易平台 /auth 接口要求的 JSON 字符串
func (c *DelegationChain) MarshalAPI() (string, error) {
	out := apiChain{
		Delegations:  make([]apiSignedDelegation, 0, len(c.Delegations)),
		PublicKeyHex: c.PublicKeyHex,
	}
	for _, d := range c.Delegations {
		out.Delegations = append(out.Delegations, apiSignedDelegation{
			Delegation: apiDelegation{
				PubkeyHex:     d.Delegation.PubkeyHex,
				ExpirationHex: fmt.Sprintf("%x", d.Delegation.Expiration),
			},
			SignatureHex: d.SignatureHex,
		})
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal delegation chain")
	}
	return string(raw), nil
}

// DelegatedIdentity 会话密钥 + delegation 链组成的委托身份。
// 签名本身只用会话私钥，链负责向验证方证明授权关系。
type DelegatedIdentity struct {
	Session *SessionIdentity
	Chain   DelegationChain
}

// NewDelegatedIdentity 组装委托身份
func NewDelegatedIdentity(session *SessionIdentity, chain DelegationChain) *DelegatedIdentity {
	return &DelegatedIdentity{Session: session, Chain: chain}
}

// Sign 用会话密钥签名
func (d *DelegatedIdentity) Sign(msg []byte) []byte {
	return d.Session.Sign(msg)
}

// Sender 委托身份对应的 principal（由链根公钥推导）
func (d *DelegatedIdentity) Sender() (principal.Principal, error) {
	root, err := d.Chain.RootPublicKey()
	if err != nil {
		return principal.Principal{}, err
	}
	return BotPrincipal(root), nil
}
