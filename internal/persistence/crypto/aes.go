package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

var (
	// ErrPacketTooShort 表示加密报文长度不足，
	// 无法包含完整的 nonce、密文和 MAC。
	ErrPacketTooShort = errors.New("crypto: packet too short")

	// ErrInvalidMAC 表示 HMAC 签名校验失败。
	ErrInvalidMAC = errors.New("crypto: invalid mac")
)

// macKeyInfo 是从存档密钥派生 HMAC 密钥时使用的 HKDF info。
const macKeyInfo = "persistence/hmac"

// AESCryptographer 使用 AES-GCM 加密，再用 HMAC-SHA256 对密文签名。
//
// 报文格式：nonce || ciphertext || mac，整体做 base64 编码。
//   - nonce     ：每次加密随机生成，长度等于 AEAD.NonceSize()
//   - ciphertext：AES-GCM 加密后的密文（包含 GCM tag）
//   - mac       ：HMAC-SHA256(nonce || ciphertext)
type AESCryptographer struct {
	aead    cipher.AEAD
	hmacKey []byte
}

// 确保 AESCryptographer 满足 Cryptographer 接口。
var _ Cryptographer = (*AESCryptographer)(nil)

// NewAESCryptographer 使用 key 的 UTF-8 字节作为 AES 密钥。
//
// key 长度必须为 16、24 或 32 字节，分别对应 AES-128/192/256。
func NewAESCryptographer(key string) (*AESCryptographer, error) {
	encKey := []byte(key)
	switch len(encKey) {
	case 16, 24, 32:
	default:
		return nil, merr.WrapErrKeyInvalid(len(encKey), "key must be 16, 24 or 32 bytes")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, merr.WrapErrKeyInvalid(len(encKey), err.Error())
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	macKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, encKey, nil, []byte(macKeyInfo)), macKey); err != nil {
		return nil, err
	}

	return &AESCryptographer{
		aead:    aead,
		hmacKey: macKey,
	}, nil
}

// Encrypt 对明文加密并签名。
func (c *AESCryptographer) Encrypt(ctx context.Context, plaintext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", merr.WrapErrEncrypt(err)
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	mac := c.sign(nonce, ciphertext)

	packet := make([]byte, 0, len(nonce)+len(ciphertext)+len(mac))
	packet = append(packet, nonce...)
	packet = append(packet, ciphertext...)
	packet = append(packet, mac...)
	return base64.StdEncoding.EncodeToString(packet), nil
}

// Decrypt 验证签名并解密报文。
func (c *AESCryptographer) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	packet, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", merr.WrapErrDecrypt(err)
	}

	nonceSize := c.aead.NonceSize()
	if len(packet) < nonceSize+c.aead.Overhead()+sha256.Size {
		return "", merr.WrapErrDecrypt(ErrPacketTooShort)
	}

	nonce := packet[:nonceSize]
	macOffset := len(packet) - sha256.Size
	body := packet[nonceSize:macOffset]

	if !hmac.Equal(c.sign(nonce, body), packet[macOffset:]) {
		return "", merr.WrapErrDecrypt(ErrInvalidMAC)
	}

	plaintext, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil {
		return "", merr.WrapErrDecrypt(err)
	}
	return string(plaintext), nil
}

func (c *AESCryptographer) sign(nonce, ciphertext []byte) []byte {
	m := hmac.New(sha256.New, c.hmacKey)
	_, _ = m.Write(nonce)
	_, _ = m.Write(ciphertext)
	return m.Sum(nil)
}
