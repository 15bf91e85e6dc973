package serializer

import (
	"encoding/xml"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// XMLSerializer 使用 encoding/xml，输出带 XML 声明头。
//
// 与标准库一致，map 等类型无法编码为 XML。
type XMLSerializer struct{}

// 编译期断言：确保 XMLSerializer 实现了 Serializer 接口。
var _ Serializer = (*XMLSerializer)(nil)

func (XMLSerializer) Extension() string { return "xml" }

func (XMLSerializer) Serialize(v any) (string, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return "", merr.WrapErrSerialize("xml", err)
	}
	return xml.Header + string(b), nil
}

func (XMLSerializer) SerializePretty(v any) (string, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", merr.WrapErrSerialize("xml", err)
	}
	return xml.Header + string(b), nil
}

func (XMLSerializer) Deserialize(content string, target any) error {
	if err := checkTarget(target); err != nil {
		return err
	}
	if err := xml.Unmarshal([]byte(content), target); err != nil {
		return merr.WrapErrFormat("xml", err)
	}
	return nil
}
