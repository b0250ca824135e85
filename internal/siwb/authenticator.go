package siwb

import (
	"context"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kashguard/go-odin-auth/internal/bip322"
	"github.com/kashguard/go-odin-auth/internal/icauth"
	"github.com/kashguard/go-odin-auth/internal/session"
	"github.com/kashguard/go-odin-auth/internal/signer"
)

// Step 登录流程中的阶段，出错时随 StepError 一起返回
type Step string

const (
	StepPublicKey     Step = "fetch_public_key"
	StepPrepareLogin  Step = "prepare_login"
	StepSignChallenge Step = "sign_challenge"
	StepLogin         Step = "siwb_login"
	StepDelegation    Step = "get_delegation"
	StepTokenExchange Step = "token_exchange"
)

// StepError 标记登录失败发生在哪一步
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return string(e.Step) + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

var (
	// ErrAddressMismatch 本地推导的地址与 canister 报告的不一致。
	// 这意味着 canister 侧密钥材料有问题，继续登录会把签名绑到错误地址上。
	ErrAddressMismatch = errors.New("derived address does not match canister-reported address")
	// ErrDelegationUnavailable 重试耗尽后仍取不到 delegation
	ErrDelegationUnavailable = errors.New("delegation not available after retries")
	// ErrTokenExchangeFailed 平台拒绝签发 JWT
	ErrTokenExchangeFailed = errors.New("platform token exchange failed")
)

const (
	delegationRetryAttempts = 5
	delegationRetryDelay    = 2 * time.Second
)

// RemoteSigner bot 密钥的远程托管方：取公钥、对 sighash 出 Schnorr 签名
type RemoteSigner interface {
	PublicKey(ctx context.Context, botName string) (*signer.PublicKeyRecord, error)
	Sign(ctx context.Context, botName string, message []byte) (string, error)
}

// TokenAPI 平台的 token 签发与验证接口
type TokenAPI interface {
	ExchangeToken(ctx context.Context, timestamp string, signature []byte, delegationJSON string) (string, error)
	VerifyToken(ctx context.Context, token string) error
}

// SessionStore 会话缓存
type SessionStore interface {
	Load(ctx context.Context, botName string) (*session.Session, bool)
	Save(s *session.Session) (string, error)
}

// Authenticator 把远程签名方、SIWB canister 和平台 API 串成完整登录流程
type Authenticator struct {
	signer   RemoteSigner
	canister Canister
	api      TokenAPI
	store    SessionStore
	log      zerolog.Logger

	retryAttempts int
	retryDelay    time.Duration
	now           func() time.Time
}

// NewAuthenticator 创建认证器
func NewAuthenticator(signer RemoteSigner, canister Canister, api TokenAPI, store SessionStore, log zerolog.Logger) *Authenticator {
	return &Authenticator{
		signer:        signer,
		canister:      canister,
		api:           api,
		store:         store,
		log:           log.With().Str("component", "authenticator").Logger(),
		retryAttempts: delegationRetryAttempts,
		retryDelay:    delegationRetryDelay,
		now:           time.Now,
	}
}

// SetRetryDelay 调整 delegation 轮询间隔
func (a *Authenticator) SetRetryDelay(d time.Duration) {
	a.retryDelay = d
}

// GetOrLogin 先查会话缓存，miss 或失效时执行完整登录
func (a *Authenticator) GetOrLogin(ctx context.Context, botName string) (*session.Session, error) {
	if s, ok := a.store.Load(ctx, botName); ok {
		return s, nil
	}
	return a.Login(ctx, botName)
}

// Login 执行完整的 SIWB 登录，返回可用于平台 API 的会话
func (a *Authenticator) Login(ctx context.Context, botName string) (*session.Session, error) {
	log := a.log.With().Str("bot_name", botName).Logger()
	log.Info().Msg("Starting SIWB login")

	// 1. 取 bot 公钥，并独立推导地址交叉验证
	record, err := a.signer.PublicKey(ctx, botName)
	if err != nil {
		return nil, stepErr(StepPublicKey, err)
	}
	pubkeyHex := record.PublicKeyHex
	derivedAddress, err := bip322.DeriveAddress(pubkeyHex)
	if err != nil {
		return nil, stepErr(StepPublicKey, err)
	}
	// 无条件比对，canister 报告的地址为空同样算不一致
	if record.Address != derivedAddress {
		log.Error().Str("derived", derivedAddress).Str("reported", record.Address).
			Msg("Address cross-check failed")
		return nil, stepErr(StepPublicKey, ErrAddressMismatch)
	}
	address := derivedAddress
	log.Debug().Str("address", address).Msg("Bot address derived")

	// 2. 向 canister 要 challenge
	challenge, err := a.canister.PrepareLogin(ctx, address)
	if err != nil {
		return nil, stepErr(StepPrepareLogin, err)
	}

	// 3. 对 challenge 做 BIP322 签名（sighash 本地算，签名走远程托管）
	sighashHex, _, err := bip322.ComputeSighash(challenge, pubkeyHex)
	if err != nil {
		return nil, stepErr(StepSignChallenge, err)
	}
	sighash, err := hex.DecodeString(sighashHex)
	if err != nil {
		return nil, stepErr(StepSignChallenge, err)
	}
	sigHex, err := a.signer.Sign(ctx, botName, sighash)
	if err != nil {
		return nil, stepErr(StepSignChallenge, err)
	}
	witness, err := bip322.EncodeWitness(sigHex)
	if err != nil {
		return nil, stepErr(StepSignChallenge, err)
	}

	// 4. 生成临时会话密钥并提交登录
	sessionID, err := icauth.NewSessionIdentity()
	if err != nil {
		return nil, stepErr(StepLogin, err)
	}
	sessionPubkey, err := sessionID.DERPublicKey()
	if err != nil {
		return nil, stepErr(StepLogin, err)
	}
	details, err := a.canister.Login(ctx, witness, address, pubkeyHex, sessionPubkey)
	if err != nil {
		return nil, stepErr(StepLogin, err)
	}
	log.Debug().Uint64("expiration", details.Expiration).Msg("SIWB login accepted")

	// 5. 轮询取回 delegation。canister 的证书有生成延迟，
	//    任何错误都重试而不只是 NotFound。
	signed, err := a.fetchDelegation(ctx, address, sessionPubkey, details.Expiration, log)
	if err != nil {
		return nil, stepErr(StepDelegation, err)
	}

	chain := icauth.DelegationChain{
		Delegations: []icauth.SignedDelegation{
			{
				Delegation: icauth.Delegation{
					PubkeyHex:  hex.EncodeToString(signed.Delegation.Pubkey),
					Expiration: signed.Delegation.Expiration,
				},
				SignatureHex: hex.EncodeToString(signed.Signature),
			},
		},
		PublicKeyHex: hex.EncodeToString(details.UserCanisterPubkey),
	}
	identity := icauth.NewDelegatedIdentity(sessionID, chain)
	botPrincipal := icauth.BotPrincipal(details.UserCanisterPubkey)

	// 6. 用委托身份给当前时间戳（毫秒）签名，换平台 JWT
	timestamp := strconv.FormatInt(a.now().UnixMilli(), 10)
	tsSignature := identity.Sign([]byte(timestamp))
	delegationJSON, err := chain.MarshalAPI()
	if err != nil {
		return nil, stepErr(StepTokenExchange, err)
	}
	token, err := a.api.ExchangeToken(ctx, timestamp, tsSignature, delegationJSON)
	if err != nil {
		return nil, stepErr(StepTokenExchange, err)
	}

	// 7. 回读验证一次 token。失败只记日志：token 已经到手，
	//    后续真正的 API 调用会给出权威答案。
	if err := a.api.VerifyToken(ctx, token); err != nil {
		log.Warn().Err(err).Msg("Fresh token failed verification probe")
	}

	s := &session.Session{
		BotName:       botName,
		Token:         token,
		PrincipalText: botPrincipal.Encode(),
		Address:       address,
		SavedAt:       a.now().Unix(),
		Identity:      identity,
		Chain:         &chain,
	}

	if path, err := a.store.Save(s); err != nil {
		log.Warn().Err(err).Msg("Failed to persist session")
	} else if path != "" {
		log.Debug().Str("path", path).Msg("Session persisted")
	}

	log.Info().Str("principal", s.PrincipalText).Str("address", address).Msg("SIWB login complete")
	return s, nil
}

func (a *Authenticator) fetchDelegation(ctx context.Context, address string, sessionPubkey []byte, expiration uint64, log zerolog.Logger) (*CanisterSignedDelegation, error) {
	var lastErr error
	for attempt := 1; attempt <= a.retryAttempts; attempt++ {
		signed, err := a.canister.GetDelegation(ctx, address, sessionPubkey, expiration)
		if err == nil {
			return signed, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt).Msg("Delegation not ready yet")

		if attempt == a.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "delegation polling canceled")
		case <-time.After(a.retryDelay):
		}
	}
	return nil, errors.Wrapf(ErrDelegationUnavailable, "last error: %v", lastErr)
}
