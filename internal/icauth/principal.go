package icauth

import (
	"crypto/sha256"

	"github.com/aviate-labs/agent-go/principal"
)

// BotPrincipal 从 user canister pubkey 推导 bot 的 principal：
// sha224(pubkey) || 0x02。
// 注意这不是平台通用的 self-authenticating 推导规则，而是这套
// SIWB 委托身份方案的固定约定，不能改。
func BotPrincipal(userCanisterPubkey []byte) principal.Principal {
	sum := sha256.Sum224(userCanisterPubkey)
	raw := make([]byte, 0, sha256.Size224+1)
	raw = append(raw, sum[:]...)
	raw = append(raw, 0x02)
	return principal.Principal{Raw: raw}
}
