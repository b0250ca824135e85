package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kashguard/go-odin-auth/internal/icauth"
)

// TokenValidator 用 bearer token 对交易平台做一次轻量鉴权请求
type TokenValidator interface {
	VerifyToken(ctx context.Context, token string) error
}

// fileRecord 磁盘上的会话文件格式
type fileRecord struct {
	JWTToken          string                  `json:"jwt_token"`
	BotPrincipalText  string                  `json:"bot_principal_text"`
	Address           string                  `json:"address"`
	BotName           string                  `json:"bot_name"`
	SavedAt           int64                   `json:"saved_at"`
	SessionPEMB64     string                  `json:"session_pem_b64,omitempty"`
	DelegationChain   *icauth.DelegationChain `json:"delegation_chain,omitempty"`
	BTCDepositAddress string                  `json:"btc_deposit_address,omitempty"`
}

// Cache 按 (bot, network) 持久化会话的文件缓存。
// Load 的任何失败都只是 cache miss，调用方落回全新登录。
type Cache struct {
	dir       string
	suffix    string // 非默认网络的文件名后缀，如 "_testing"
	enabled   bool
	validator TokenValidator
	log       zerolog.Logger
}

// NewCache 创建会话缓存。enabled=false 时 Save/Load 都是空操作。
func NewCache(dir, suffix string, enabled bool, validator TokenValidator, log zerolog.Logger) *Cache {
	return &Cache{
		dir:       dir,
		suffix:    suffix,
		enabled:   enabled,
		validator: validator,
		log:       log.With().Str("component", "session_cache").Logger(),
	}
}

var nameSanitizer = strings.NewReplacer("/", "_", "\\", "_", " ", "_")

// Path 会话文件路径：session_<bot>[<suffix>].json
func (c *Cache) Path(botName string) string {
	return filepath.Join(c.dir, "session_"+nameSanitizer.Replace(botName)+c.suffix+".json")
}

// Save 登录成功后立刻持久化。文件从创建起就是 0600，
// 不走"先创建再收紧权限"的路径，避免竞态窗口。
func (c *Cache) Save(s *Session) (string, error) {
	if !c.enabled {
		return "", nil
	}

	rec := fileRecord{
		JWTToken:          s.Token,
		BotPrincipalText:  s.PrincipalText,
		Address:           s.Address,
		BotName:           s.BotName,
		SavedAt:           s.SavedAt,
		BTCDepositAddress: s.DepositAddress,
		DelegationChain:   s.Chain,
	}
	if s.Identity != nil {
		pemBytes, err := s.Identity.Session.ToPEM()
		if err != nil {
			return "", errors.Wrap(err, "failed to serialize session key")
		}
		rec.SessionPEMB64 = base64.StdEncoding.EncodeToString(pemBytes)
	}

	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return "", errors.Wrap(err, "failed to create cache dir")
	}

	path := c.Path(s.BotName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", errors.Wrap(err, "failed to create session file")
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", errors.Wrap(err, "failed to write session file")
	}

	c.log.Debug().Str("path", path).Str("bot_name", s.BotName).Msg("Session saved")
	return path, nil
}

// Load 读取并验证缓存的会话。返回 (nil, false) 表示 miss：
// 文件不存在、记录损坏、token 缺失/过期、远端验证失败都算 miss。
func (c *Cache) Load(ctx context.Context, botName string) (*Session, bool) {
	if !c.enabled {
		c.log.Debug().Msg("Session caching disabled")
		return nil, false
	}

	path := c.Path(botName)
	raw, err := os.ReadFile(path)
	if err != nil {
		c.log.Debug().Str("bot_name", botName).Msg("No cached session")
		return nil, false
	}

	var rec fileRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.log.Warn().Err(err).Str("path", path).Msg("Cached session is malformed")
		return nil, false
	}
	if rec.JWTToken == "" {
		c.log.Debug().Str("path", path).Msg("Cached session has no token")
		return nil, false
	}

	// 本地先看一眼 JWT 的 exp，明显过期就不浪费一次网络验证
	if exp := tokenExpiry(rec.JWTToken); !exp.IsZero() && time.Now().After(exp) {
		c.log.Debug().Time("expired_at", exp).Msg("Cached token is expired")
		return nil, false
	}

	if err := c.validator.VerifyToken(ctx, rec.JWTToken); err != nil {
		c.log.Info().Err(err).Str("bot_name", botName).
			Msg("Cached token rejected by platform, falling through to fresh login")
		return nil, false
	}

	s := &Session{
		BotName:        botName,
		Token:          rec.JWTToken,
		PrincipalText:  rec.BotPrincipalText,
		Address:        rec.Address,
		SavedAt:        rec.SavedAt,
		Chain:          rec.DelegationChain,
		DepositAddress: rec.BTCDepositAddress,
	}

	// 身份材料损坏时降级为仅 token 的会话，而不是强制重新登录
	if rec.SessionPEMB64 != "" && rec.DelegationChain != nil {
		if identity, err := reconstructIdentity(rec.SessionPEMB64, *rec.DelegationChain); err != nil {
			c.log.Warn().Err(err).Str("bot_name", botName).
				Msg("Session partially restored (token only)")
		} else {
			s.Identity = identity
		}
	}

	c.log.Info().Str("bot_name", botName).Str("principal", s.PrincipalText).
		Bool("token_only", s.TokenOnly()).Msg("Loaded cached session")
	return s, true
}

func reconstructIdentity(pemB64 string, chain icauth.DelegationChain) (*icauth.DelegatedIdentity, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(pemB64)
	if err != nil {
		return nil, errors.Wrap(err, "malformed session key encoding")
	}
	sessionID, err := icauth.SessionIdentityFromPEM(pemBytes)
	if err != nil {
		return nil, err
	}
	return icauth.NewDelegatedIdentity(sessionID, chain), nil
}

// tokenExpiry 不验证签名，只读 JWT 的 exp claim；读不出来返回零值
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
