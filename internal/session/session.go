package session

import (
	"github.com/kashguard/go-odin-auth/internal/icauth"
)

// Session 一次完整 SIWB 登录的产物。只在整个协议成功后构造，
// 失败的登录不会产生部分填充的 Session。
type Session struct {
	BotName       string
	Token         string // 交易平台 REST API 的 bearer JWT
	PrincipalText string // bot 在平台上的 principal（文本格式）
	Address       string // P2TR 地址 bc1p…
	SavedAt       int64  // epoch 秒

	// Identity 为 nil 时是"仅 token"会话：REST 调用可用，
	// canister 调用不可用（缓存里的身份材料损坏时的降级结果）。
	Identity *icauth.DelegatedIdentity
	Chain    *icauth.DelegationChain

	// DepositAddress 缓存的 BTC 充值地址（按 principal 确定，可为空）
	DepositAddress string
}

// TokenOnly 会话是否降级为仅 token
func (s *Session) TokenOnly() bool {
	return s.Identity == nil
}
