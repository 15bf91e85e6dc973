package compressor

import (
	"context"
	"encoding/base64"

	"github.com/klauspost/compress/zstd"

	"github.com/lk2023060901/persistence-go/pkg/util/hardware"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// ZstdCompressor 基于 github.com/klauspost/compress/zstd 的压缩实现，输出 base64 文本。
//
// 它持有独立的 encoder/decoder 实例，不再使用时调用 Close 释放。
type ZstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// 编译期断言：确保 ZstdCompressor 实现了 Compressor 接口。
var _ Compressor = (*ZstdCompressor)(nil)

// NewZstdCompressor 创建一个 ZstdCompressor，默认并发度为主机 CPU 核心数。
func NewZstdCompressor() (*ZstdCompressor, error) {
	return NewZstdCompressorWithConcurrency(0)
}

// NewZstdCompressorWithConcurrency 创建一个 ZstdCompressor，并允许显式指定 zstd 的并发数。
//
//   - concurrency <= 0：使用主机 CPU 核心数（hardware.GetCPUNum()）。
//   - concurrency > 0 ：使用指定并发度。
func NewZstdCompressorWithConcurrency(concurrency int) (*ZstdCompressor, error) {
	if concurrency <= 0 {
		concurrency = hardware.GetCPUNum()
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithZeroFrames(true),
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(concurrency),
	)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(concurrency))
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &ZstdCompressor{
		enc: enc,
		dec: dec,
	}, nil
}

func (c *ZstdCompressor) Compress(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c == nil || c.enc == nil {
		return "", merr.WrapErrCompress("zstd", zstd.ErrEncoderClosed)
	}

	out := c.enc.EncodeAll([]byte(text), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *ZstdCompressor) Decompress(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c == nil || c.dec == nil {
		return "", merr.WrapErrDecompress("zstd", zstd.ErrDecoderClosed)
	}

	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return "", merr.WrapErrDecompress("zstd", err)
	}
	out, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		return "", merr.WrapErrDecompress("zstd", err)
	}
	return string(out), nil
}

// Close 释放内部 encoder/decoder 持有的资源。
//
// 再次使用已关闭实例将返回 ErrEncoderClosed/ErrDecoderClosed。
func (c *ZstdCompressor) Close() {
	if c == nil {
		return
	}
	if c.enc != nil {
		_ = c.enc.Close()
		c.enc = nil
	}
	if c.dec != nil {
		c.dec.Close()
		c.dec = nil
	}
}
