// Package compressor 提供存档文本的压缩策略。
package compressor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Compressor 抽象了“单次压缩/解压”能力。
//
// 输入输出都是文本，压缩后的二进制以 base64 表示。
type Compressor interface {
	Compress(ctx context.Context, text string) (string, error)
	Decompress(ctx context.Context, text string) (string, error)
}

// Type 标识一种压缩策略。
type Type int

const (
	None Type = iota
	GZip
	Zstd
)

var typeNames = map[Type]string{
	None: "none",
	GZip: "gzip",
	Zstd: "zstd",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("compressor.Type(%d)", int(t))
}

// ParseType 不区分大小写地解析压缩类型名。
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, merr.WrapErrStrategyUnknown("compressor", s)
}

// Types 按枚举值顺序返回所有已知类型。
func Types() []Type {
	keys := maps.Keys(typeNames)
	slices.Sort(keys)
	return keys
}

// New 创建指定类型的 Compressor。
func New(t Type) (Compressor, error) {
	switch t {
	case None:
		return Nop{}, nil
	case GZip:
		return GZipCompressor{}, nil
	case Zstd:
		return NewZstdCompressor()
	default:
		return nil, merr.WrapErrParameterInvalid("known compressor type", t.String())
	}
}

// Close 释放压缩器持有的资源，不持有资源的实现直接忽略。
func Close(c Compressor) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Nop 是一个空实现：不做任何压缩/解压，直接返回输入内容。
type Nop struct{}

// 编译期断言：确保 Nop 实现了 Compressor 接口。
var _ Compressor = Nop{}

func (Nop) Compress(_ context.Context, text string) (string, error) {
	return text, nil
}

func (Nop) Decompress(_ context.Context, text string) (string, error) {
	return text, nil
}
