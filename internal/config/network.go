package config

import (
	"github.com/pkg/errors"
)

// Network 目标网络环境。网络决定 ckSigner canister 和会话文件命名。
type Network string

const (
	NetworkPrd         Network = "prd"
	NetworkTesting     Network = "testing"
	NetworkDevelopment Network = "development"
)

// ErrUnknownNetwork 网络名不在 prd/testing/development 之中
var ErrUnknownNetwork = errors.New("unknown network")

// ParseNetwork 解析网络名
func ParseNetwork(s string) (Network, error) {
	switch Network(s) {
	case NetworkPrd, NetworkTesting, NetworkDevelopment:
		return Network(s), nil
	default:
		return "", errors.Wrapf(ErrUnknownNetwork, "%q", s)
	}
}

// ckSigner canister 按网络区分，SIWB / ckBTC ledger / 平台 API 各网络共用
const (
	ckSignerPrdCanisterID     = "g7qkb-iiaaa-aaaar-qb3za-cai"
	ckSignerTestingCanisterID = "ho2u6-qaaaa-aaaar-qb34q-cai"

	siwbCanisterID    = "bcxqa-kqaaa-aaaak-qotba-cai"
	ckBTCLedgerID     = "mxzaz-hqaaa-aaaar-qaada-cai"
	defaultICHost     = "https://ic0.app"
	defaultOdinAPIURL = "https://api.odin.fun/v1"
)

// CkSignerCanisterID 该网络下托管 bot 密钥的 ckSigner canister
func (n Network) CkSignerCanisterID() string {
	if n == NetworkPrd {
		return ckSignerPrdCanisterID
	}
	return ckSignerTestingCanisterID
}

// SiwbCanisterID SIWB provider canister（各网络共用）
func (n Network) SiwbCanisterID() string {
	return siwbCanisterID
}

// CkBTCLedgerID ckBTC ICRC ledger canister
func (n Network) CkBTCLedgerID() string {
	return ckBTCLedgerID
}

// CacheSuffix 会话文件名后缀。生产网络不带后缀，保持旧文件兼容。
func (n Network) CacheSuffix() string {
	if n == NetworkPrd {
		return ""
	}
	return "_" + string(n)
}
