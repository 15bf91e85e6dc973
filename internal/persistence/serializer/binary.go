package serializer

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

func init() {
	// 通用文档（例如从 JSON 解析出来的 map）经 interface 字段编码时需要注册具体类型。
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// BinarySerializer 使用 encoding/gob 编码，并以 base64 文本输出。
type BinarySerializer struct{}

// 编译期断言：确保 BinarySerializer 实现了 Serializer 接口。
var _ Serializer = (*BinarySerializer)(nil)

func (BinarySerializer) Extension() string { return "bin" }

func (BinarySerializer) Serialize(v any) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return "", merr.WrapErrSerialize("binary", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SerializePretty 二进制格式没有可读形式，与 Serialize 相同。
func (s BinarySerializer) SerializePretty(v any) (string, error) {
	return s.Serialize(v)
}

func (BinarySerializer) Deserialize(content string, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return merr.WrapErrFormat("binary", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return merr.WrapErrFormat("binary", err)
	}
	return nil
}
