package icauth_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/kashguard/go-odin-auth/internal/icauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotPrincipal(t *testing.T) {
	ucp, err := hex.DecodeString(
		"303c300c060a2b0601040183b8430102032c000a000000000000fe0101" +
			"0190abcdef0102030405060708090a0b0c0d0e0f10111213141516171819" +
			"1a1b1c1d1e")
	require.NoError(t, err)

	p := icauth.BotPrincipal(ucp)
	assert.Len(t, p.Raw, 29)
	assert.Equal(t, byte(0x02), p.Raw[len(p.Raw)-1])
	assert.Equal(t,
		"mvcns-ja4q6-itfbg-3f4t7-fm5bn-mu5q6-3tfep-72g3n-3ciqu-icfny-eqe",
		p.Encode())
}

func TestBotPrincipal_Deterministic(t *testing.T) {
	p1 := icauth.BotPrincipal([]byte("same input"))
	p2 := icauth.BotPrincipal([]byte("same input"))
	p3 := icauth.BotPrincipal([]byte("other input"))
	assert.Equal(t, p1.Encode(), p2.Encode())
	assert.NotEqual(t, p1.Encode(), p3.Encode())
}

func TestSessionIdentity_PEMRoundTrip(t *testing.T) {
	id, err := icauth.NewSessionIdentity()
	require.NoError(t, err)

	pemBytes, err := id.ToPEM()
	require.NoError(t, err)

	restored, err := icauth.SessionIdentityFromPEM(pemBytes)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey(), restored.PublicKey())

	// 恢复后的私钥必须能产生可验证的签名
	msg := []byte("1700000000000")
	sig := restored.Sign(msg)
	assert.True(t, ed25519.Verify(id.PublicKey(), msg, sig))
}

func TestSessionIdentity_FromPEMRejectsGarbage(t *testing.T) {
	_, err := icauth.SessionIdentityFromPEM([]byte("not a pem"))
	require.Error(t, err)
}

func TestSessionIdentity_DERPublicKey(t *testing.T) {
	id, err := icauth.NewSessionIdentity()
	require.NoError(t, err)

	der, err := id.DERPublicKey()
	require.NoError(t, err)
	// Ed25519 SubjectPublicKeyInfo 固定 44 字节
	assert.Len(t, der, 44)
}

func TestDelegationChain_MarshalAPI(t *testing.T) {
	chain := icauth.DelegationChain{
		Delegations: []icauth.SignedDelegation{{
			Delegation: icauth.Delegation{
				PubkeyHex:  "aabb",
				Expiration: 1711111111000000000,
			},
			SignatureHex: "ccdd",
		}},
		PublicKeyHex: "eeff",
	}

	raw, err := chain.MarshalAPI()
	require.NoError(t, err)

	var decoded struct {
		Delegations []struct {
			Delegation struct {
				Pubkey     string `json:"pubkey"`
				Expiration string `json:"expiration"`
			} `json:"delegation"`
			Signature string `json:"signature"`
		} `json:"delegations"`
		PublicKey string `json:"publicKey"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))

	require.Len(t, decoded.Delegations, 1)
	// REST 侧 expiration 是 hex 字符串
	assert.Equal(t, "17bf167d56610600", decoded.Delegations[0].Delegation.Expiration)
	assert.Equal(t, "aabb", decoded.Delegations[0].Delegation.Pubkey)
	assert.Equal(t, "ccdd", decoded.Delegations[0].Signature)
	assert.Equal(t, "eeff", decoded.PublicKey)
}

func TestDelegatedIdentity_SignAndSender(t *testing.T) {
	session, err := icauth.NewSessionIdentity()
	require.NoError(t, err)

	chain := icauth.DelegationChain{PublicKeyHex: "0102030405"}
	delegated := icauth.NewDelegatedIdentity(session, chain)

	msg := []byte("timestamp-payload")
	sig := delegated.Sign(msg)
	assert.True(t, ed25519.Verify(session.PublicKey(), msg, sig))

	sender, err := delegated.Sender()
	require.NoError(t, err)
	assert.Equal(t, icauth.BotPrincipal([]byte{1, 2, 3, 4, 5}).Encode(), sender.Encode())
}

func TestDelegatedIdentity_SenderMalformedChain(t *testing.T) {
	session, err := icauth.NewSessionIdentity()
	require.NoError(t, err)

	delegated := icauth.NewDelegatedIdentity(session, icauth.DelegationChain{PublicKeyHex: "zz"})
	_, err = delegated.Sender()
	require.Error(t, err)
}
