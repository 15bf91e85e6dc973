// Package crypto 提供存档文本的加解密策略。
package crypto

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Cryptographer 抽象了存档文本的加密/解密能力。
//
// 输入输出都是文本，密文以 base64 表示。
type Cryptographer interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// Type 标识一种加密策略。
type Type int

const (
	None Type = iota
	AES
)

var typeNames = map[Type]string{
	None: "none",
	AES:  "aes",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("crypto.Type(%d)", int(t))
}

// ParseType 不区分大小写地解析加密类型名。
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, merr.WrapErrStrategyUnknown("cryptographer", s)
}

// Types 按枚举值顺序返回所有已知类型。
func Types() []Type {
	keys := maps.Keys(typeNames)
	slices.Sort(keys)
	return keys
}

// New 创建指定类型的 Cryptographer，None 时忽略 key。
func New(t Type, key string) (Cryptographer, error) {
	switch t {
	case None:
		return Nop{}, nil
	case AES:
		return NewAESCryptographer(key)
	default:
		return nil, merr.WrapErrParameterInvalid("known cryptographer type", t.String())
	}
}

// Nop 是一个空实现：不做加密也不做验签，直接透传数据。
type Nop struct{}

// 编译期断言：确保 Nop 实现了 Cryptographer 接口。
var _ Cryptographer = Nop{}

func (Nop) Encrypt(_ context.Context, plaintext string) (string, error) {
	return plaintext, nil
}

func (Nop) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return ciphertext, nil
}
