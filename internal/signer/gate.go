package signer

import (
	"context"

	"github.com/aviate-labs/agent-go/candid/idl"
	"github.com/aviate-labs/agent-go/principal"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// acceptedFeeToken 目前只接受一种 fee token
const acceptedFeeToken = "ckBTC"

var (
	// ErrUnsupportedFeeToken canister 要求付费但没有配置 ckBTC fee token
	ErrUnsupportedFeeToken = errors.New("signer requires fee payment but no ckBTC fee token is configured")
	// ErrFeePaymentUnavailable 需要付费但没有可付费的钱包身份
	ErrFeePaymentUnavailable = errors.New("fee payment required but no funded wallet is available")
	// ErrFeePaymentFailed ledger approve 失败（通常是余额不足），
	// 给钱包充值后重跑整个登录即可
	ErrFeePaymentFailed = errors.New("fee payment approve failed")
	// ErrPublicKeyUnavailable query 和 update 两条路径都拿不到公钥
	ErrPublicKeyUnavailable = errors.New("public key unavailable via query and update")
)

// FeeLedger fee token ledger 的 ICRC-2 approve 能力
type FeeLedger interface {
	// Approve 授权 spender 在 ledger 上划扣 amount，返回 block index
	Approve(ctx context.Context, spender principal.Principal, amount uint64) (uint64, error)
	// TransferFee ledger 自身的转账手续费
	TransferFee() uint64
}

// Gate 付费门：每次付费调用前查询收费配置，必要时先 ICRC-2 approve。
// 不变式：配置了 fee token 时，付费调用一定发生在一次成功的 approve 之后。
type Gate struct {
	canister Canister
	ledger   FeeLedger // nil 表示没有可付费的钱包
	spender  principal.Principal
	log      zerolog.Logger
}

// NewGate 创建付费门。spender 是 ckSigner canister 的 principal
// （approve 授权它从钱包划扣费用）。
func NewGate(canister Canister, ledger FeeLedger, spender principal.Principal, log zerolog.Logger) *Gate {
	return &Gate{
		canister: canister,
		ledger:   ledger,
		spender:  spender,
		log:      log.With().Str("component", "fee_gate").Logger(),
	}
}

// paymentIfRequired 查询收费配置并按需 approve。
// 返回 nil 表示免费（payment 为 opt None）。
func (g *Gate) paymentIfRequired(ctx context.Context) (*Payment, error) {
	res, err := g.canister.GetFeeTokens(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch fee tokens")
	}
	if res.Err != nil {
		return nil, errors.Wrap(*res.Err, "getFeeTokens rejected")
	}

	tokens := res.Ok.FeeTokens
	if len(tokens) == 0 {
		g.log.Debug().Msg("No fees configured, priced call is free")
		return nil, nil
	}

	var feeToken *FeeToken
	for i := range tokens {
		if tokens[i].TokenName == acceptedFeeToken {
			feeToken = &tokens[i]
			break
		}
	}
	if feeToken == nil {
		names := make([]string, 0, len(tokens))
		for _, t := range tokens {
			names = append(names, t.TokenName)
		}
		return nil, errors.Wrapf(ErrUnsupportedFeeToken, "available: %v", names)
	}

	if g.ledger == nil {
		return nil, ErrFeePaymentUnavailable
	}

	fee := feeToken.Fee.BigInt().Uint64()
	// approve 额度 = 签名费 + ledger 转账手续费
	approveAmount := fee + g.ledger.TransferFee()

	g.log.Info().
		Uint64("fee", fee).
		Uint64("approve_amount", approveAmount).
		Str("spender", g.spender.Encode()).
		Msg("Approving fee payment on ledger")

	blockIndex, err := g.ledger.Approve(ctx, g.spender, approveAmount)
	if err != nil {
		return nil, errors.Wrapf(ErrFeePaymentFailed, "%v", err)
	}
	g.log.Info().Uint64("block_index", blockIndex).Msg("Fee approve succeeded")

	return &Payment{
		TokenName:   feeToken.TokenName,
		TokenLedger: feeToken.TokenLedger,
		Amount:      idl.NewNat(fee),
	}, nil
}

// PublicKey 获取 bot 的 x-only 公钥和 P2TR 地址。
// 先走免费 query；任何失败都回退到付费 update。
func (g *Gate) PublicKey(ctx context.Context, botName string) (*PublicKeyRecord, error) {
	res, err := g.canister.GetPublicKeyQuery(ctx, botName)
	if err == nil && res.Ok != nil {
		return res.Ok, nil
	}
	switch {
	case err != nil:
		g.log.Debug().Err(err).Msg("getPublicKeyQuery transport error, falling back to update")
	case res.Err != nil:
		g.log.Debug().Str("canister_err", res.Err.Error()).
			Msg("Public key cache miss, falling back to update")
	default:
		g.log.Debug().Msg("getPublicKeyQuery returned neither Ok nor Err, falling back to update")
	}

	payment, err := g.paymentIfRequired(ctx)
	if err != nil {
		return nil, err
	}

	upd, err := g.canister.GetPublicKey(ctx, botName, payment)
	if err != nil {
		return nil, errors.Wrap(ErrPublicKeyUnavailable, err.Error())
	}
	if upd.Err != nil {
		return nil, errors.Wrap(ErrPublicKeyUnavailable, upd.Err.Error())
	}
	return upd.Ok, nil
}

// Sign 对 32 字节消息哈希做 threshold Schnorr 签名，必要时先付费
func (g *Gate) Sign(ctx context.Context, botName string, message []byte) (string, error) {
	if len(message) != 32 {
		return "", errors.Errorf("message must be a 32-byte hash, got %d bytes", len(message))
	}

	payment, err := g.paymentIfRequired(ctx)
	if err != nil {
		return "", err
	}

	res, err := g.canister.Sign(ctx, botName, message, payment)
	if err != nil {
		return "", errors.Wrap(err, "sign call failed")
	}
	if res.Err != nil {
		return "", errors.Wrap(*res.Err, "sign rejected")
	}
	return res.Ok.SignatureHex, nil
}
