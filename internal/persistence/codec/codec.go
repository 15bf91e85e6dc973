// Package codec 将序列化、加密、压缩三个阶段组合成存档编解码流程。
package codec

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/persistence-go/internal/persistence"
	"github.com/lk2023060901/persistence-go/internal/persistence/compressor"
	"github.com/lk2023060901/persistence-go/internal/persistence/crypto"
	"github.com/lk2023060901/persistence-go/internal/persistence/serializer"
	"github.com/lk2023060901/persistence-go/pkg/log"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Codec 抽象了“从业务对象到存档文本，以及从存档文本回到业务对象”的完整流程。
//
// Pipeline（写出 Encode）：
//
//	value --> serializer --> cryptographer --> compressor --> text
//
// Pipeline（读入 Decode）：
//
//	text --> compressor^-1 --> cryptographer^-1 --> serializer text [--> value]
type Codec struct {
	serializer    serializer.Serializer
	cryptographer crypto.Cryptographer
	compressor    compressor.Compressor
}

// Options 用于构造 Codec 的依赖注入参数。
type Options struct {
	Serializer    serializer.Serializer
	Cryptographer crypto.Cryptographer  // 允许为 nil（内部会用 crypto.Nop）
	Compressor    compressor.Compressor // 允许为 nil（内部会用 compressor.Nop）
}

// New 创建一个基于给定依赖的 Codec。
func New(opts Options) (*Codec, error) {
	if opts.Serializer == nil {
		return nil, merr.WrapErrParameterMissing("serializer")
	}

	c := &Codec{
		serializer:    opts.Serializer,
		cryptographer: opts.Cryptographer,
		compressor:    opts.Compressor,
	}
	if c.cryptographer == nil {
		c.cryptographer = crypto.Nop{}
	}
	if c.compressor == nil {
		c.compressor = compressor.Nop{}
	}
	return c, nil
}

func (c *Codec) Serializer() serializer.Serializer {
	return c.serializer
}

func (c *Codec) Compressor() compressor.Compressor {
	return c.compressor
}

// Encode 依次执行序列化、加密、压缩，返回写入主存档的文本。
func (c *Codec) Encode(ctx context.Context, v any) (string, error) {
	text, err := c.serializer.Serialize(v)
	if err != nil {
		return "", c.fail(ctx, persistence.StageSerialize, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err = c.cryptographer.Encrypt(ctx, text)
	if err != nil {
		return "", c.fail(ctx, persistence.StageEncrypt, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err = c.compressor.Compress(ctx, text)
	if err != nil {
		return "", c.fail(ctx, persistence.StageCompress, err)
	}
	return text, nil
}

// Decode 依次执行解压、解密，返回序列化器的原始文本。
func (c *Codec) Decode(ctx context.Context, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := c.compressor.Decompress(ctx, content)
	if err != nil {
		return "", c.fail(ctx, persistence.StageDecompress, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err = c.cryptographer.Decrypt(ctx, text)
	if err != nil {
		return "", c.fail(ctx, persistence.StageDecrypt, err)
	}
	return text, nil
}

// DecodeInto 完成 Decode 后再反序列化到 target。
func (c *Codec) DecodeInto(ctx context.Context, content string, target any) error {
	text, err := c.Decode(ctx, content)
	if err != nil {
		return err
	}
	return c.Deserialize(ctx, text, target)
}

// Deserialize 只执行反序列化阶段，用于读取未压缩的调试副本。
func (c *Codec) Deserialize(ctx context.Context, text string, target any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.serializer.Deserialize(text, target); err != nil {
		return c.fail(ctx, persistence.StageDeserialize, err)
	}
	return nil
}

// Pretty 返回便于阅读的序列化文本，不经过加密和压缩。
func (c *Codec) Pretty(v any) (string, error) {
	text, err := c.serializer.SerializePretty(v)
	if err != nil {
		return "", persistence.WrapStage(persistence.StageSerialize, err)
	}
	return text, nil
}

func (c *Codec) fail(ctx context.Context, stage persistence.Stage, err error) error {
	log.Ctx(ctx).Debug("codec stage failed", log.FieldStage(string(stage)), zap.Error(err))
	return persistence.WrapStage(stage, err)
}
