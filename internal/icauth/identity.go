package icauth

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"

	"github.com/aviate-labs/agent-go/identity"
	"github.com/pkg/errors"
)

const sessionKeyPEMType = "PRIVATE KEY"

// SessionIdentity 登录用的临时 Ed25519 会话密钥对。
// SIWB 登录成功后，canister 会签发一条授权该密钥的 delegation。
type SessionIdentity struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey
}

// NewSessionIdentity 生成新的临时会话密钥
func NewSessionIdentity() (*SessionIdentity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate session key")
	}
	return &SessionIdentity{pub: pub, priv: priv}, nil
}

// SessionIdentityFromPEM 从 PKCS#8 PEM 恢复会话密钥（session cache 反序列化用）
func SessionIdentityFromPEM(data []byte) (*SessionIdentity, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != sessionKeyPEMType {
		return nil, errors.New("no private key PEM block found")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse session key")
	}

	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.Errorf("unexpected session key type %T", key)
	}
	return &SessionIdentity{
		pub:  priv.Public().(ed25519.PublicKey),
		priv: priv,
	}, nil
}

// ToPEM 序列化为 PKCS#8 PEM（session cache 持久化用）
func (s *SessionIdentity) ToPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(s.priv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session key")
	}
	return pem.EncodeToMemory(&pem.Block{Type: sessionKeyPEMType, Bytes: der}), nil
}

// DERPublicKey 公钥的 DER (SubjectPublicKeyInfo) 编码，
// siwb_login / siwb_get_delegation 以这个格式标识会话密钥。
func (s *SessionIdentity) DERPublicKey() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(s.pub)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal session public key")
	}
	return der, nil
}

// Sign 用会话私钥签名
func (s *SessionIdentity) Sign(msg []byte) []byte {
	return ed25519.Sign(s.priv, msg)
}

// PublicKey 原始 32 字节 Ed25519 公钥
func (s *SessionIdentity) PublicKey() ed25519.PublicKey {
	return s.pub
}

// AgentIdentity 转成 agent-go 的 identity（delegation 链下的 canister 调用用）
func (s *SessionIdentity) AgentIdentity() (identity.Identity, error) {
	id, err := identity.NewEd25519Identity(s.pub, s.priv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build agent identity")
	}
	return id, nil
}
