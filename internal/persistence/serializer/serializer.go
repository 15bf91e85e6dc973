// Package serializer 提供“对象 <-> 文本”的多种序列化策略。
package serializer

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Serializer 抽象了存档层“对象 <-> 文本”的序列化能力。
//
// 输出始终是合法的 UTF-8 文本，二进制格式会先做 base64 编码。
type Serializer interface {
	// Extension 返回调试副本使用的文件扩展名（不含点）。
	Extension() string

	// Serialize 将对象编码为紧凑文本。
	Serialize(v any) (string, error)

	// SerializePretty 将对象编码为便于阅读的文本，二进制格式与 Serialize 相同。
	SerializePretty(v any) (string, error)

	// Deserialize 将文本解码到已有对象中，target 必须为非 nil 指针。
	Deserialize(content string, target any) error
}

// Type 标识一种序列化策略。
type Type int

const (
	Binary Type = iota
	JSON
	JSONSonic
	XML
	Protobuf
)

var typeNames = map[Type]string{
	Binary:    "binary",
	JSON:      "json",
	JSONSonic: "json-sonic",
	XML:       "xml",
	Protobuf:  "protobuf",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("serializer.Type(%d)", int(t))
}

// ParseType 不区分大小写地解析序列化类型名。
func ParseType(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, merr.WrapErrStrategyUnknown("serializer", s)
}

// Types 按枚举值顺序返回所有已知类型。
func Types() []Type {
	keys := maps.Keys(typeNames)
	slices.Sort(keys)
	return keys
}

// IsAvailable 探测某种序列化类型在当前平台上是否可用，没有副作用。
func IsAvailable(t Type) bool {
	switch t {
	case Binary, JSON, XML, Protobuf:
		return true
	case JSONSonic:
		return sonicAvailable
	default:
		return false
	}
}

// New 创建指定类型的 Serializer。
func New(t Type) (Serializer, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, merr.WrapErrParameterInvalid("known serializer type", t.String())
	}
	if !IsAvailable(t) {
		return nil, merr.WrapErrSerializerUnavailable(t, "not supported on this platform")
	}

	switch t {
	case Binary:
		return BinarySerializer{}, nil
	case JSON:
		return JSONSerializer{}, nil
	case JSONSonic:
		return SonicSerializer{}, nil
	case XML:
		return XMLSerializer{}, nil
	default:
		return ProtoSerializer{}, nil
	}
}

// checkTarget 校验反序列化目标为非 nil 指针。
func checkTarget(target any) error {
	if target == nil {
		return merr.WrapErrParameterInvalid("non-nil pointer", "nil")
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer {
		return merr.WrapErrParameterInvalid("non-nil pointer", rv.Type().String())
	}
	if rv.IsNil() {
		return merr.WrapErrParameterInvalid("non-nil pointer", "nil "+rv.Type().String())
	}
	return nil
}
