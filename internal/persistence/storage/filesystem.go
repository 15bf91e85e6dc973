// Package storage 负责把编码后的存档写入数据目录，并按名字读取、删除、列举。
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lk2023060901/persistence-go/internal/persistence"
	"github.com/lk2023060901/persistence-go/internal/persistence/codec"
	"github.com/lk2023060901/persistence-go/pkg/log"
	"github.com/lk2023060901/persistence-go/pkg/metrics"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

const (
	// Folder 为数据目录下存放存档的子目录名。
	Folder = "Persistence"
	// CompressedExtension 为主存档文件的扩展名。
	CompressedExtension = "sv"

	deleteAllParallelism = 4

	// 读失败告警的限流参数，同一分组每秒最多一条。
	readWarnGroup   = "persistence.storage.read"
	readWarnCredit  = 1
	readWarnBalance = 10
)

var tracer = otel.Tracer("persistence/storage")

// Options 用于构造 FileSystem 的依赖注入参数。
type Options struct {
	// BasePath 为数据根目录，存档位于 BasePath/Persistence 下。
	BasePath string
	Codec    *codec.Codec
	Stream   Stream  // 允许为 nil（内部会用 FileStream）
	Flusher  Flusher // 允许为 nil（内部会用 NopFlusher）
	// PrettyAllowed 为 false 时不会写入或读取调试副本。
	PrettyAllowed bool
	Logger        *log.MLogger
}

// FileSystem 按名字管理存档文件。
//
// 同名文件的并发操作不加锁，由调用方自行保证。
type FileSystem struct {
	log.Binder

	basePath      string
	codec         *codec.Codec
	stream        Stream
	flusher       Flusher
	prettyAllowed bool
	readLog       *log.MLogger
}

// New 创建 FileSystem。
func New(opts Options) (*FileSystem, error) {
	if strings.TrimSpace(opts.BasePath) == "" {
		return nil, merr.WrapErrParameterMissing("base path")
	}
	if opts.Codec == nil {
		return nil, merr.WrapErrParameterMissing("codec")
	}

	fsys := &FileSystem{
		basePath:      opts.BasePath,
		codec:         opts.Codec,
		stream:        opts.Stream,
		flusher:       opts.Flusher,
		prettyAllowed: opts.PrettyAllowed,
	}
	if fsys.stream == nil {
		fsys.stream = FileStream{}
	}
	if fsys.flusher == nil {
		fsys.flusher = NopFlusher{}
	}
	if opts.Logger != nil {
		fsys.SetLogger(opts.Logger)
	} else {
		fsys.SetLogger(log.With(log.FieldComponent("storage")))
	}
	fsys.readLog = fsys.Logger().With(log.FieldOperation("read")).
		WithRateGroup(readWarnGroup, readWarnCredit, readWarnBalance)
	return fsys, nil
}

// DataPath 返回存档所在目录。
func (fsys *FileSystem) DataPath() string {
	return filepath.Join(fsys.basePath, Folder)
}

// Codec 返回当前使用的编解码流程。
func (fsys *FileSystem) Codec() *codec.Codec {
	return fsys.codec
}

// PrettyAllowed 表示是否允许读写调试副本。
func (fsys *FileSystem) PrettyAllowed() bool {
	return fsys.prettyAllowed
}

// Path 返回 name 对应的完整路径，name 原有的扩展名会被 ext 替换。
func (fsys *FileSystem) Path(name, ext string) string {
	return changeExtension(filepath.Join(fsys.DataPath(), strings.TrimSpace(name)), ext)
}

// CompressedName 返回使用主存档扩展名的文件名。
func CompressedName(name string) string {
	return changeExtension(name, CompressedExtension)
}

func changeExtension(path, ext string) string {
	path = strings.TrimSuffix(path, filepath.Ext(path))
	if ext == "" {
		return path
	}
	return path + "." + strings.TrimPrefix(ext, ".")
}

// CheckDataPath 确保数据目录存在；Stream 不实现 DirMaker 时视为目录总是可用。
func (fsys *FileSystem) CheckDataPath(ctx context.Context) error {
	if m, ok := fsys.stream.(DirMaker); ok {
		return m.MkdirAll(ctx, fsys.DataPath())
	}
	return nil
}

// Save 编码 v 并写入主存档 <name>.sv。
//
// saveDebugCopy 为 true 且允许调试副本时，再写入一份未加密未压缩的可读副本。
// 主存档先于调试副本写入，调试副本失败时主存档已经落盘。
func (fsys *FileSystem) Save(ctx context.Context, v any, name string, saveDebugCopy bool) (err error) {
	if !fsys.prettyAllowed {
		saveDebugCopy = false
	}
	ctx, op := fsys.startOp(ctx, metrics.SaveLabel, name)
	defer func() { op.end(err) }()

	name, err = validName(name)
	if err != nil {
		return err
	}
	if err = fsys.CheckDataPath(ctx); err != nil {
		return err
	}

	content, err := fsys.codec.Encode(ctx, v)
	if err != nil {
		return err
	}
	path := fsys.Path(name, CompressedExtension)
	if err = fsys.stream.Write(ctx, path, content); err != nil {
		return persistence.WrapStage(persistence.StageWrite, err)
	}
	metrics.ObservePayload(metrics.SaveLabel, len(content))
	fsys.Logger().Debug("primary file written", log.FieldName(name), log.FieldPath(path), zap.Int("size", len(content)))

	if saveDebugCopy {
		pretty, err := fsys.codec.Pretty(v)
		if err != nil {
			return err
		}
		debugPath := fsys.Path(name, fsys.codec.Serializer().Extension())
		if err := fsys.stream.Write(ctx, debugPath, pretty); err != nil {
			return persistence.WrapStage(persistence.StageWrite, err)
		}
		fsys.Logger().Debug("debug copy written", log.FieldName(name), log.FieldPath(debugPath))
	}

	return fsys.flush(ctx)
}

// TryLoad 读取 name 对应的存档并反序列化到 target。
//
// 文件不存在或内容为空时返回 (false, nil)。
// 不允许调试副本时 useCompressed 总是按 true 处理。
func (fsys *FileSystem) TryLoad(ctx context.Context, target any, name string, useCompressed bool) (found bool, err error) {
	ctx, op := fsys.startOp(ctx, metrics.LoadLabel, name)
	defer func() { op.endLoad(found, err) }()

	content, err := fsys.LoadContent(ctx, name, useCompressed)
	if err != nil || content == "" {
		return false, err
	}
	if err = fsys.codec.Deserialize(ctx, content, target); err != nil {
		return false, err
	}
	return true, nil
}

// TryLoadFromPath 与 TryLoad 相同，但直接指定文件路径。
// 仅当扩展名为 sv 时才做解压和解密。
func (fsys *FileSystem) TryLoadFromPath(ctx context.Context, target any, path string) (found bool, err error) {
	ctx, op := fsys.startOp(ctx, metrics.LoadLabel, filepath.Base(path))
	defer func() { op.endLoad(found, err) }()

	content, err := fsys.LoadContentFromPath(ctx, path)
	if err != nil || content == "" {
		return false, err
	}
	if err = fsys.codec.Deserialize(ctx, content, target); err != nil {
		return false, err
	}
	return true, nil
}

// TryDeserialize 反序列化调用方已经拿到的内容，content 为空时返回 (false, nil)。
func (fsys *FileSystem) TryDeserialize(ctx context.Context, target any, content string, isCompressed bool) (bool, error) {
	if content == "" {
		return false, nil
	}
	if isCompressed {
		if err := fsys.codec.DecodeInto(ctx, content, target); err != nil {
			return false, err
		}
		return true, nil
	}
	if err := fsys.codec.Deserialize(ctx, content, target); err != nil {
		return false, err
	}
	return true, nil
}

// LoadContent 返回 name 对应存档解码后的序列化文本，文件不存在时返回空串。
func (fsys *FileSystem) LoadContent(ctx context.Context, name string, useCompressed bool) (string, error) {
	if !fsys.prettyAllowed {
		useCompressed = true
	}
	name, err := validName(name)
	if err != nil {
		return "", err
	}
	ext := CompressedExtension
	if !useCompressed {
		ext = fsys.codec.Serializer().Extension()
	}
	return fsys.LoadContentFromPath(ctx, fsys.Path(name, ext))
}

// LoadContentFromPath 读取 path 的内容，扩展名为 sv 时先解码。
func (fsys *FileSystem) LoadContentFromPath(ctx context.Context, path string) (string, error) {
	content, err := fsys.read(ctx, path)
	if err != nil || content == "" {
		return "", err
	}
	metrics.ObservePayload(metrics.LoadLabel, len(content))

	if strings.TrimPrefix(filepath.Ext(path), ".") != CompressedExtension {
		return content, nil
	}
	return fsys.codec.Decode(ctx, content)
}

// LoadCompressedContent 返回主存档的原始文本，不做解码。
func (fsys *FileSystem) LoadCompressedContent(ctx context.Context, name string) (string, error) {
	name, err := validName(name)
	if err != nil {
		return "", err
	}
	return fsys.read(ctx, fsys.Path(name, CompressedExtension))
}

// LoadStream 打开主存档，文件不存在时返回 (nil, nil)。
// Stream 不实现 Opener 时退化为一次性读取。调用方负责关闭返回的 ReadCloser。
func (fsys *FileSystem) LoadStream(ctx context.Context, name string) (io.ReadCloser, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	path := fsys.Path(name, CompressedExtension)
	if o, ok := fsys.stream.(Opener); ok {
		rc, err := o.Open(ctx, path)
		if errors.Is(err, merr.ErrIoKeyNotFound) {
			return nil, nil
		}
		return rc, err
	}
	content, err := fsys.stream.Read(ctx, path)
	if err != nil {
		if errors.Is(err, merr.ErrIoKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// Delete 删除调试副本和主存档，文件不存在不是错误。
func (fsys *FileSystem) Delete(ctx context.Context, name string) (err error) {
	ctx, op := fsys.startOp(ctx, metrics.DeleteLabel, name)
	defer func() { op.end(err) }()

	name, err = validName(name)
	if err != nil {
		return err
	}
	if err = fsys.remove(ctx, fsys.Path(name, fsys.codec.Serializer().Extension())); err != nil {
		return err
	}
	if err = fsys.remove(ctx, fsys.Path(name, CompressedExtension)); err != nil {
		return err
	}
	fsys.Logger().Debug("save deleted", log.FieldName(name))
	return fsys.flush(ctx)
}

// DeleteAll 删除数据目录下的所有存档，所有失败会合并后返回。
func (fsys *FileSystem) DeleteAll(ctx context.Context) error {
	names, err := fsys.FileNames(ctx)
	if err != nil {
		return err
	}

	errs := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteAllParallelism)
	for i, name := range names {
		g.Go(func() error {
			errs[i] = fsys.Delete(gctx, name)
			return nil
		})
	}
	_ = g.Wait()
	return merr.Combine(errs...)
}

// FileNames 返回数据目录下所有主存档的名字（不含扩展名），按字典序排列。
// 目录不存在时返回空列表；Stream 不实现 Lister 时返回 merr.ErrOperationNotSupported。
func (fsys *FileSystem) FileNames(ctx context.Context) ([]string, error) {
	l, ok := fsys.stream.(Lister)
	if !ok {
		return nil, merr.WrapErrOperationNotSupported("list", "stream does not implement Lister")
	}
	return l.List(ctx, fsys.DataPath(), CompressedExtension)
}

func (fsys *FileSystem) read(ctx context.Context, path string) (string, error) {
	content, err := fsys.stream.Read(ctx, path)
	if err != nil {
		if errors.Is(err, merr.ErrIoKeyNotFound) {
			return "", nil
		}
		fsys.readLog.RatedWarn(1, "read save file failed", log.FieldPath(path), zap.Error(err))
		return "", persistence.WrapStage(persistence.StageRead, err)
	}
	return content, nil
}

func (fsys *FileSystem) remove(ctx context.Context, path string) error {
	r, ok := fsys.stream.(Remover)
	if !ok {
		return merr.WrapErrOperationNotSupported("delete", "stream does not implement Remover")
	}
	return r.Remove(ctx, path)
}

func (fsys *FileSystem) flush(ctx context.Context) error {
	return persistence.WrapStage(persistence.StageFlush, fsys.flusher.Flush(ctx))
}

// validName 去掉首尾空白，拒绝空名字和会离开数据目录的名字。
// 名字中最后一个 "." 之后的部分视为扩展名，会被替换掉。
func validName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." || strings.ContainsAny(trimmed, `/\`) {
		return "", merr.WrapErrInvalidName(name)
	}
	return trimmed, nil
}

// opTracker 记录一次存档操作的 span 与指标。
type opTracker struct {
	op    string
	start time.Time
	span  trace.Span
}

func (fsys *FileSystem) startOp(ctx context.Context, op, name string) (context.Context, *opTracker) {
	ctx, span := tracer.Start(ctx, "persistence."+op,
		trace.WithAttributes(attribute.String("persistence.name", name)))
	return ctx, &opTracker{op: op, start: time.Now(), span: span}
}

func (t *opTracker) end(err error) {
	status := metrics.SuccessLabel
	if err != nil {
		status = metrics.FailLabel
		t.span.RecordError(err)
		t.span.SetStatus(codes.Error, err.Error())
	}
	metrics.Observe(t.op, status, t.start)
	t.span.End()
}

func (t *opTracker) endLoad(found bool, err error) {
	if err == nil && !found {
		metrics.Observe(t.op, metrics.MissLabel, t.start)
		t.span.End()
		return
	}
	t.end(err)
}
