package serializer

import (
	"encoding/base64"
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// ProtoSerializer 使用 Protobuf 进行二进制序列化，并以 base64 文本输出。
//
// 注意：传入/传出的对象必须实现 proto.Message。
type ProtoSerializer struct{}

// 编译期断言：确保 ProtoSerializer 实现了 Serializer 接口。
var _ Serializer = (*ProtoSerializer)(nil)

func (ProtoSerializer) Extension() string { return "pb" }

func (ProtoSerializer) Serialize(v any) (string, error) {
	msg, ok := v.(proto.Message)
	if !ok {
		return "", merr.WrapErrParameterInvalid("proto.Message", fmt.Sprintf("%T", v))
	}
	b, err := proto.Marshal(msg)
	if err != nil {
		return "", merr.WrapErrSerialize("protobuf", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// SerializePretty 二进制格式没有可读形式，与 Serialize 相同。
func (s ProtoSerializer) SerializePretty(v any) (string, error) {
	return s.Serialize(v)
}

func (ProtoSerializer) Deserialize(content string, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	msg, ok := target.(proto.Message)
	if !ok {
		return merr.WrapErrParameterInvalid("proto.Message", fmt.Sprintf("%T", target))
	}
	raw, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return merr.WrapErrFormat("protobuf", err)
	}
	if err := proto.Unmarshal(raw, msg); err != nil {
		return merr.WrapErrFormat("protobuf", err)
	}
	return nil
}
