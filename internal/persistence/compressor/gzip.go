package compressor

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// GZipCompressor 使用 gzip 默认压缩级别，输出 base64 文本。
//
// gzip 尾部的 CRC32 与长度字段可以发现内容损坏。
type GZipCompressor struct{}

// 编译期断言：确保 GZipCompressor 实现了 Compressor 接口。
var _ Compressor = GZipCompressor{}

func (GZipCompressor) Compress(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := io.WriteString(w, text); err != nil {
		return "", merr.WrapErrCompress("gzip", err)
	}
	if err := w.Close(); err != nil {
		return "", merr.WrapErrCompress("gzip", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (GZipCompressor) Decompress(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", merr.WrapErrDecompress("gzip", err)
	}
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", merr.WrapErrDecompress("gzip", err)
	}
	defer r.Close()

	plain, err := io.ReadAll(r)
	if err != nil {
		return "", merr.WrapErrDecompress("gzip", err)
	}
	return string(plain), nil
}
