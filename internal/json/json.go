// Package json 在 bytedance/sonic 之上提供与 encoding/json 一致的入口，
// 项目内统一从这里做 JSON 编解码。
package json

import (
	"github.com/bytedance/sonic"
)

var (
	api = sonic.ConfigStd

	Marshal       = api.Marshal
	Unmarshal     = api.Unmarshal
	MarshalIndent = api.MarshalIndent
	NewEncoder    = api.NewEncoder
	NewDecoder    = api.NewDecoder
	Valid         = api.Valid
)

// MarshalString 返回 JSON 文本而非字节切片。
func MarshalString(v any) (string, error) {
	return api.MarshalToString(v)
}

// UnmarshalString 从 JSON 文本解码到 v。
func UnmarshalString(s string, v any) error {
	return api.UnmarshalFromString(s, v)
}
