package bip322

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// messageTag BIP0322 消息哈希的 tag（见 BIP322 规范）
const messageTag = "BIP0322-signed-message"

// signatureLen Schnorr (BIP340) 签名固定为 64 字节
const signatureLen = 64

var (
	// ErrInvalidPublicKey 公钥不是 32 字节 x-only hex
	ErrInvalidPublicKey = errors.New("public key must be a 32-byte x-only key in hex")
	// ErrInvalidSignatureLength 签名不是 64 字节
	ErrInvalidSignatureLength = errors.New("signature must be exactly 64 bytes")
)

// TaggedHash 计算 BIP0322 tagged hash：
// SHA256(SHA256(tag) || SHA256(tag) || utf8(message))
func TaggedHash(message string) [32]byte {
	tagHash := sha256.Sum256([]byte(messageTag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write([]byte(message))

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// parseXOnlyKey 解析 32 字节 x-only 公钥（hex）
func parseXOnlyKey(pubkeyHex string) ([]byte, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	if len(raw) != schnorr.PubKeyBytesLen {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "got %d bytes", len(raw))
	}
	return raw, nil
}

// taprootOutput 根据 x-only 内部公钥推导 P2TR 地址和 scriptPubKey。
// output key = BIP341 tweak(internal key)，无 script tree。
func taprootOutput(pubkeyHex string) (*btcutil.AddressTaproot, []byte, error) {
	raw, err := parseXOnlyKey(pubkeyHex)
	if err != nil {
		return nil, nil, err
	}

	internalKey, err := schnorr.ParsePubKey(raw)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}

	outputKey := txscript.ComputeTaprootKeyNoScript(internalKey)
	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(outputKey), &chaincfg.MainNetParams,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build taproot address")
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build taproot script")
	}
	return addr, pkScript, nil
}

// DeriveAddress 从 32 字节 x-only 公钥推导主网 P2TR 地址（bc1p…）
func DeriveAddress(pubkeyHex string) (string, error) {
	addr, _, err := taprootOutput(pubkeyHex)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// buildToSpend 构造 BIP322 的 toSpend 虚拟交易。
// 该交易永远不会广播，只用它的 txid 作为 toSign 的输入。
// 布局固定：version=0, locktime=0,
//
//	vin:  txid=0…0, vout=0xffffffff, scriptSig=OP_0 PUSH32<taggedHash(message)>, seq=0
//	vout: amount=0, scriptPubKey=签名者的 P2TR
func buildToSpend(message string, pkScript []byte) (*wire.MsgTx, error) {
	msgHash := TaggedHash(message)

	scriptSig, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(msgHash[:]).
		Script()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build toSpend scriptSig")
	}

	tx := wire.NewMsgTx(0)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{}, // null txid
			Index: 0xffffffff,
		},
		SignatureScript: scriptSig,
		Sequence:        0,
	})
	tx.AddTxOut(wire.NewTxOut(0, pkScript))
	return tx, nil
}

// ToSpendTxid 返回 toSpend 虚拟交易的 txid（双 SHA256，显示时字节反转）
func ToSpendTxid(message, pubkeyHex string) (chainhash.Hash, error) {
	_, pkScript, err := taprootOutput(pubkeyHex)
	if err != nil {
		return chainhash.Hash{}, err
	}
	toSpend, err := buildToSpend(message, pkScript)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return toSpend.TxHash(), nil
}

// buildToSign 构造 toSign 交易：
// 单输入花费 toSpend 的输出 0（key-path），单 OP_RETURN 输出，version=0
func buildToSign(toSpendTxid chainhash.Hash) (*wire.MsgTx, error) {
	opReturn, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		Script()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build OP_RETURN script")
	}

	tx := wire.NewMsgTx(0)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: toSpendTxid, Index: 0},
		Sequence:         0,
	})
	tx.AddTxOut(wire.NewTxOut(0, opReturn))
	return tx, nil
}

// ComputeSighash 计算 BIP322 消息签名的 BIP341 key-path sighash
// （SIGHASH_DEFAULT，amount=0），同时返回推导出的 P2TR 地址。
// 调用方必须把返回的地址和独立已知的地址做比对。
func ComputeSighash(message, pubkeyHex string) (sighashHex string, address string, err error) {
	addr, pkScript, err := taprootOutput(pubkeyHex)
	if err != nil {
		return "", "", err
	}

	toSpend, err := buildToSpend(message, pkScript)
	if err != nil {
		return "", "", err
	}

	toSign, err := buildToSign(toSpend.TxHash())
	if err != nil {
		return "", "", err
	}

	prevFetcher := txscript.NewCannedPrevOutputFetcher(pkScript, 0)
	sigHashes := txscript.NewTxSigHashes(toSign, prevFetcher)

	sighash, err := txscript.CalcTaprootSignatureHash(
		sigHashes, txscript.SigHashDefault, toSign, 0, prevFetcher,
	)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to compute taproot sighash")
	}

	return hex.EncodeToString(sighash), addr.EncodeAddress(), nil
}

// EncodeWitness 把 64 字节 Schnorr 签名编码成 BIP322 witness（base64）。
// P2TR key-path spend 的 witness 只有一个栈元素：
// varint(1) || varint_len(64) || signature
func EncodeWitness(signatureHex string) (string, error) {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return "", errors.Wrap(ErrInvalidSignatureLength, err.Error())
	}
	if len(sig) != signatureLen {
		return "", errors.Wrapf(ErrInvalidSignatureLength, "got %d bytes", len(sig))
	}

	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, 1); err != nil {
		return "", errors.Wrap(err, "failed to encode witness count")
	}
	if err := wire.WriteVarBytes(&buf, 0, sig); err != nil {
		return "", errors.Wrap(err, "failed to encode witness item")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
