package signer

import (
	"fmt"

	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
)

// ckSigner canister 接口的 candid 类型。
// 所有远端响应在边界处解码成强类型的 tagged union，下游只看字段。

// PublicKeyRecord getPublicKey/getPublicKeyQuery 的 Ok 载荷
type PublicKeyRecord struct {
	BotName      string `ic:"botName"`
	PublicKeyHex string `ic:"publicKeyHex"`
	Address      string `ic:"address"`
}

// SignRecord sign 的 Ok 载荷
type SignRecord struct {
	BotName      string `ic:"botName"`
	SignatureHex string `ic:"signatureHex"`
}

// Payment 付费调用附带的付款描述
type Payment struct {
	TokenName   string              `ic:"tokenName"`
	TokenLedger principal.Principal `ic:"tokenLedger"`
	Amount      idl.Nat             `ic:"amount"`
}

// FeeToken canister 收费配置里的一种代币
type FeeToken struct {
	TokenName   string              `ic:"tokenName"`
	TokenLedger principal.Principal `ic:"tokenLedger"`
	Fee         idl.Nat             `ic:"fee"`
}

// Treasury 费用归集目标
type Treasury struct {
	TreasuryName      string              `ic:"treasuryName"`
	TreasuryPrincipal principal.Principal `ic:"treasuryPrincipal"`
}

// FeeTokensRecord getFeeTokens 的 Ok 载荷
type FeeTokensRecord struct {
	CanisterID principal.Principal `ic:"canisterId"`
	Treasury   Treasury            `ic:"treasury"`
	FeeTokens  []FeeToken          `ic:"feeTokens"`
	Usage      string              `ic:"usage"`
}

// APIError ckSigner 的错误 variant
type APIError struct {
	Unauthorized      *idl.Null `ic:"Unauthorized,variant"`
	InvalidID         *idl.Null `ic:"InvalidId,variant"`
	ZeroAddress       *idl.Null `ic:"ZeroAddress,variant"`
	FailedOperation   *idl.Null `ic:"FailedOperation,variant"`
	Other             *string   `ic:"Other,variant"`
	StatusCode        *uint16   `ic:"StatusCode,variant"`
	InsufficientCycle *idl.Nat  `ic:"InsuffientCycles,variant"`
}

func (e APIError) Error() string {
	switch {
	case e.Unauthorized != nil:
		return "Unauthorized"
	case e.InvalidID != nil:
		return "InvalidId"
	case e.ZeroAddress != nil:
		return "ZeroAddress"
	case e.FailedOperation != nil:
		return "FailedOperation"
	case e.Other != nil:
		return *e.Other
	case e.StatusCode != nil:
		return fmt.Sprintf("StatusCode %d", *e.StatusCode)
	case e.InsufficientCycle != nil:
		return fmt.Sprintf("InsufficientCycles %v", e.InsufficientCycle.BigInt())
	default:
		return "unknown canister error"
	}
}

// PublicKeyResult getPublicKey/getPublicKeyQuery 的响应 union
type PublicKeyResult struct {
	Ok  *PublicKeyRecord `ic:"Ok,variant"`
	Err *APIError        `ic:"Err,variant"`
}

// SignResult sign 的响应 union
type SignResult struct {
	Ok  *SignRecord `ic:"Ok,variant"`
	Err *APIError   `ic:"Err,variant"`
}

// FeeTokensResult getFeeTokens 的响应 union
type FeeTokensResult struct {
	Ok  *FeeTokensRecord `ic:"Ok,variant"`
	Err *APIError        `ic:"Err,variant"`
}
