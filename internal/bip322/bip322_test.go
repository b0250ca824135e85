package bip322_test

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/kashguard/go-odin-auth/internal/bip322"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试向量来自 Node.js 参考实现的已知输出
const (
	testPubkey  = "cc8a4bc64d897bddc5fbc2f670f7a8ba0b386779106cf1223c6fc5d7cd6fc115"
	testAddress = "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"
)

const testMessage = `odin.fun wants you to sign in with your Bitcoin account:
bc1pe5fyzr5dgdn895a4spr27f4cnmhatu368lne80r56ng86u9g5pcshytpst

URI: https://odin.fun
Version: 1
Nonce: abc123
Issued At: 2026-02-06T12:00:00.000Z`

var testSignature = strings.Repeat("a", 128) // 64 字节 hex

func TestTaggedHash(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"empty message", "", "c90c269c4f8fcbe6880f72a721ddfbf1914268a794cbb21cfafee13770ae19f1"},
		{"hello world", "Hello World", "f0eb03b1a75ac6d9847f55c624a99169b5dccba2a31f5b23bea77ba270de0a7a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bip322.TaggedHash(tt.message)
			assert.Equal(t, tt.want, hex.EncodeToString(got[:]))
		})
	}
}

func TestTaggedHash_Distinct(t *testing.T) {
	h1 := bip322.TaggedHash("message 1")
	h2 := bip322.TaggedHash("message 2")
	assert.NotEqual(t, h1, h2)

	// 同一输入必须稳定
	assert.Equal(t, bip322.TaggedHash("message 1"), h1)
}

func TestDeriveAddress(t *testing.T) {
	addr, err := bip322.DeriveAddress(testPubkey)
	require.NoError(t, err)
	assert.Equal(t, testAddress, addr)
	assert.True(t, strings.HasPrefix(addr, "bc1p"))
	assert.Len(t, addr, 62)
}

func TestDeriveAddress_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		pubkey string
	}{
		{"too short", "abcd"},
		{"not hex", strings.Repeat("zz", 32)},
		{"33 bytes", "02" + testPubkey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bip322.DeriveAddress(tt.pubkey)
			require.Error(t, err)
			assert.ErrorIs(t, errors.Cause(err), bip322.ErrInvalidPublicKey)
		})
	}
}

func TestToSpendTxid(t *testing.T) {
	txid, err := bip322.ToSpendTxid(testMessage, testPubkey)
	require.NoError(t, err)
	// chainhash.Hash.String() 按显示顺序（字节反转）输出
	assert.Equal(t, "e4ae9f9de24e166a099702e076d19cfaa4da7c136616c2191b4215d35e5d05bd", txid.String())
}

func TestComputeSighash(t *testing.T) {
	sighash, addr, err := bip322.ComputeSighash(testMessage, testPubkey)
	require.NoError(t, err)
	assert.Equal(t, "e163e7011b73b2ddb37445756910d2265836db67af8d61335186e2f624818a3f", sighash)
	assert.Equal(t, testAddress, addr)
}

func TestComputeSighash_Deterministic(t *testing.T) {
	s1, _, err := bip322.ComputeSighash(testMessage, testPubkey)
	require.NoError(t, err)
	s2, _, err := bip322.ComputeSighash(testMessage, testPubkey)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestComputeSighash_DifferentMessages(t *testing.T) {
	s1, addr1, err := bip322.ComputeSighash("message 1", testPubkey)
	require.NoError(t, err)
	s2, addr2, err := bip322.ComputeSighash("message 2", testPubkey)
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	// 地址只依赖公钥
	assert.Equal(t, addr1, addr2)

	derived, err := bip322.DeriveAddress(testPubkey)
	require.NoError(t, err)
	assert.Equal(t, derived, addr1)
}

func TestEncodeWitness(t *testing.T) {
	witness, err := bip322.EncodeWitness(testSignature)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(witness)
	require.NoError(t, err)

	// varint(1) || varint_len(64) || sig
	require.Len(t, decoded, 2+64)
	assert.Equal(t, byte(0x01), decoded[0])
	assert.Equal(t, byte(0x40), decoded[1])

	sig, err := hex.DecodeString(testSignature)
	require.NoError(t, err)
	assert.Equal(t, sig, decoded[2:])
}

func TestEncodeWitness_InvalidLength(t *testing.T) {
	_, err := bip322.EncodeWitness(strings.Repeat("aa", 32)) // 只有 32 字节
	require.Error(t, err)
	assert.ErrorIs(t, errors.Cause(err), bip322.ErrInvalidSignatureLength)

	_, err = bip322.EncodeWitness("not-hex")
	require.Error(t, err)
	assert.ErrorIs(t, errors.Cause(err), bip322.ErrInvalidSignatureLength)
}
