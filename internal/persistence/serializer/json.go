package serializer

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONSerializer 使用 json-iterator（兼容标准库配置）实现 JSON 编解码。
type JSONSerializer struct{}

// 编译期断言：确保 JSONSerializer 实现了 Serializer 接口。
var _ Serializer = (*JSONSerializer)(nil)

func (JSONSerializer) Extension() string { return "json" }

func (JSONSerializer) Serialize(v any) (string, error) {
	s, err := jsonAPI.MarshalToString(v)
	if err != nil {
		return "", merr.WrapErrSerialize("json", err)
	}
	return s, nil
}

func (JSONSerializer) SerializePretty(v any) (string, error) {
	b, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", merr.WrapErrSerialize("json", err)
	}
	return string(b), nil
}

func (JSONSerializer) Deserialize(content string, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	if err := jsonAPI.UnmarshalFromString(content, target); err != nil {
		return merr.WrapErrFormat("json", err)
	}
	return nil
}
