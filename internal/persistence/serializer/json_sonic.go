package serializer

import (
	"github.com/lk2023060901/persistence-go/internal/json"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// SonicSerializer 使用 internal/json（基于 bytedance/sonic）实现 JSON 编解码。
//
// 输出与 JSONSerializer 兼容，两者写出的文件可以互相读取。
type SonicSerializer struct{}

// 编译期断言：确保 SonicSerializer 实现了 Serializer 接口。
var _ Serializer = (*SonicSerializer)(nil)

func (SonicSerializer) Extension() string { return "json" }

func (SonicSerializer) Serialize(v any) (string, error) {
	s, err := json.MarshalString(v)
	if err != nil {
		return "", merr.WrapErrSerialize("json-sonic", err)
	}
	return s, nil
}

func (SonicSerializer) SerializePretty(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", merr.WrapErrSerialize("json-sonic", err)
	}
	return string(b), nil
}

func (SonicSerializer) Deserialize(content string, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	if err := json.UnmarshalString(content, target); err != nil {
		return merr.WrapErrFormat("json-sonic", err)
	}
	return nil
}
