// Package settings 在存档文件系统之上提供槽位、最近槽位记录和生命周期事件。
package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lk2023060901/persistence-go/internal/persistence/codec"
	"github.com/lk2023060901/persistence-go/internal/persistence/compressor"
	"github.com/lk2023060901/persistence-go/internal/persistence/crypto"
	"github.com/lk2023060901/persistence-go/internal/persistence/prefs"
	"github.com/lk2023060901/persistence-go/internal/persistence/serializer"
	"github.com/lk2023060901/persistence-go/internal/persistence/storage"
	"github.com/lk2023060901/persistence-go/pkg/log"
	"github.com/lk2023060901/persistence-go/pkg/util/conc"
	"github.com/lk2023060901/persistence-go/pkg/util/hardware"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// NoSlot 表示操作不针对槽位，或者没有记录过最近槽位。
const NoSlot = -1

const intentRole = "persistence.settings"

// Result 一次存取操作的结果。
type Result struct {
	Name string
	Slot int
	// Found 仅对读取有意义，表示存档是否存在。
	Found bool
	Err   error
}

// Ok 在没有错误时为 true；读取时存档不存在也算 Ok。
func (r Result) Ok() bool {
	return r.Err == nil
}

type options struct {
	prefs   prefs.Store
	stream  storage.Stream
	flusher storage.Flusher
	logger  *log.MLogger
	pool    *conc.Pool[Result]
}

// Option 用于定制 Settings 的依赖。
type Option func(*options)

// WithPreferences 使用外部的偏好存储，Settings 关闭时不会关闭它。
func WithPreferences(store prefs.Store) Option {
	return func(o *options) { o.prefs = store }
}

func WithStream(stream storage.Stream) Option {
	return func(o *options) { o.stream = stream }
}

func WithFlusher(flusher storage.Flusher) Option {
	return func(o *options) { o.flusher = flusher }
}

func WithLogger(logger *log.MLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithPool 使用外部协程池执行异步操作，Settings 关闭时不会释放它。
// 池中的 panic 处理由调用方负责。
func WithPool(pool *conc.Pool[Result]) Option {
	return func(o *options) { o.pool = pool }
}

// Settings 存档门面：按名字或槽位存取，记录最近槽位并广播生命周期事件。
type Settings struct {
	log.Binder

	cfg        Config
	fs         *storage.FileSystem
	compressor compressor.Compressor
	prefs      prefs.Store
	ownsPrefs  bool
	pool       *conc.Pool[Result]
	ownsPool   bool
	listeners  listenerRegistry

	// mu 保护 closed；inflight 记录进行中的同步和异步操作，Close 会等它们结束。
	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New 按配置构造 Settings。
//
// 配置非法或所选策略在当前平台不可用时立即失败。
func New(cfg Config, opts ...Option) (*Settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, merr.WrapErrParameterInvalidMsg("invalid persistence config: %v", err)
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	st, zt, ct, err := cfg.types()
	if err != nil {
		return nil, err
	}
	ser, err := serializer.New(st)
	if err != nil {
		return nil, err
	}
	cr, err := crypto.New(ct, cfg.CryptographerKey)
	if err != nil {
		return nil, err
	}
	co, err := compressor.New(zt)
	if err != nil {
		return nil, err
	}
	c, err := codec.New(codec.Options{Serializer: ser, Cryptographer: cr, Compressor: co})
	if err != nil {
		compressor.Close(co)
		return nil, err
	}

	s := &Settings{cfg: cfg, compressor: co}
	if o.logger != nil {
		s.SetLogger(o.logger)
	} else {
		s.SetLogger(log.With(log.FieldComponent("settings")))
	}

	s.fs, err = storage.New(storage.Options{
		BasePath:      cfg.DataPath,
		Codec:         c,
		Stream:        o.stream,
		Flusher:       o.flusher,
		PrettyAllowed: cfg.Development,
		Logger:        s.Logger().With(log.FieldComponent("storage")),
	})
	if err != nil {
		compressor.Close(co)
		return nil, err
	}

	s.prefs = o.prefs
	if s.prefs == nil {
		s.prefs, err = prefs.Open(cfg.Preferences)
		if err != nil {
			compressor.Close(co)
			return nil, err
		}
		s.ownsPrefs = true
	}

	s.pool = o.pool
	if s.pool == nil {
		size := cfg.PoolSize
		if size == 0 {
			size = hardware.GetCPUNum()
		}
		s.pool = conc.NewPool[Result](size,
			conc.WithPreAlloc(cfg.PoolPreAlloc),
			conc.WithExpiryDuration(cfg.PoolExpiry),
			conc.WithPanicHandler(func(v any) {
				s.Logger().Error("async operation panicked", zap.Any("panic", v), zap.Stack("stack"))
			}))
		s.ownsPool = true
	}

	s.Logger().Info("persistence settings ready",
		zap.String("serializer", st.String()),
		zap.String("compressor", zt.String()),
		zap.String("cryptographer", ct.String()),
		log.FieldPath(s.fs.DataPath()),
		zap.Bool("development", cfg.Development))
	return s, nil
}

// Config 返回构造时使用的配置。
func (s *Settings) Config() Config {
	return s.cfg
}

// FileSystem 返回底层的存档文件系统。
func (s *Settings) FileSystem() *storage.FileSystem {
	return s.fs
}

// SlotName 返回槽位 i 对应的存档名，序号至少两位。
func (s *Settings) SlotName(i int) string {
	if i < 0 {
		return fmt.Sprintf("%s-%03d", s.cfg.SlotName, i)
	}
	return fmt.Sprintf("%s-%02d", s.cfg.SlotName, i)
}

// Subscribe 注册生命周期事件回调，返回的函数用于取消注册。
// 回调按注册顺序在触发操作的协程中同步执行，回调中不能调用 Close。
func (s *Settings) Subscribe(fn Listener) (unsubscribe func()) {
	return s.listeners.add(fn)
}

// Save 以 name 保存 v。
func (s *Settings) Save(ctx context.Context, v any, name string) Result {
	if err := s.acquire("save"); err != nil {
		return Result{Name: name, Slot: NoSlot, Err: err}
	}
	defer s.release()
	return s.save(ctx, v, name, NoSlot)
}

// SaveSlot 保存到槽位 slot，成功后把 slot 记为最近槽位。slot 不能为负。
func (s *Settings) SaveSlot(ctx context.Context, v any, slot int) Result {
	if err := s.acquire("save"); err != nil {
		return Result{Slot: slot, Err: err}
	}
	defer s.release()
	return s.saveSlot(ctx, v, slot)
}

// TryLoad 读取 name 对应的存档到 target，target 必须为指针。
func (s *Settings) TryLoad(ctx context.Context, target any, name string) Result {
	if err := s.acquire("load"); err != nil {
		return Result{Name: name, Slot: NoSlot, Err: err}
	}
	defer s.release()
	return s.load(ctx, target, name, NoSlot)
}

// TryLoadSlot 读取槽位 slot 的存档。slot 不能为负。
func (s *Settings) TryLoadSlot(ctx context.Context, target any, slot int) Result {
	if err := s.acquire("load"); err != nil {
		return Result{Slot: slot, Err: err}
	}
	defer s.release()
	return s.loadSlot(ctx, target, slot)
}

// TryLoadLastSlot 读取最近一次成功保存的槽位，没有记录时直接返回 Found=false。
func (s *Settings) TryLoadLastSlot(ctx context.Context, target any) Result {
	if err := s.acquire("load"); err != nil {
		return Result{Slot: NoSlot, Err: err}
	}
	defer s.release()
	slot, ok := s.lastSlot(ctx)
	if !ok {
		return Result{Slot: NoSlot}
	}
	return s.loadSlot(ctx, target, slot)
}

// LastSlot 返回最近一次成功保存的槽位。
func (s *Settings) LastSlot(ctx context.Context) (int, bool) {
	if err := s.acquire("last slot"); err != nil {
		return NoSlot, false
	}
	defer s.release()
	return s.lastSlot(ctx)
}

// Delete 删除 name 对应的存档。
func (s *Settings) Delete(ctx context.Context, name string) Result {
	if err := s.acquire("delete"); err != nil {
		return Result{Name: name, Slot: NoSlot, Err: err}
	}
	defer s.release()
	err := s.fs.Delete(ctx, name)
	if err != nil {
		log.Ctx(ctx).Warn("delete failed", log.FieldName(name), zap.Error(err))
	}
	return Result{Name: name, Slot: NoSlot, Err: err}
}

// DeleteAll 删除所有存档，并清除最近槽位记录。
func (s *Settings) DeleteAll(ctx context.Context) Result {
	if err := s.acquire("delete"); err != nil {
		return Result{Slot: NoSlot, Err: err}
	}
	defer s.release()
	err := s.fs.DeleteAll(ctx)
	if err == nil {
		err = s.prefs.Delete(ctx, s.cfg.LastSlotKey)
	}
	if err != nil {
		log.Ctx(ctx).Warn("delete all failed", zap.Error(err))
	}
	return Result{Slot: NoSlot, Err: err}
}

// FileNames 返回所有存档名。
func (s *Settings) FileNames(ctx context.Context) ([]string, error) {
	if err := s.acquire("list"); err != nil {
		return nil, err
	}
	defer s.release()
	return s.fs.FileNames(ctx)
}

// Close 等待进行中的操作结束，再释放协程池、偏好存储和压缩器。
// 之后的操作都返回 merr.ErrServiceClosed，重复调用无副作用。
func (s *Settings) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()

	var errs []error
	if s.ownsPool {
		s.pool.Release()
	}
	if s.ownsPrefs {
		errs = append(errs, s.prefs.Close())
	}
	compressor.Close(s.compressor)
	s.Logger().Info("persistence settings closed", zap.Int64("submitted", s.pool.Submitted()))
	return merr.Combine(errs...)
}

// acquire 登记一次进行中的操作，已关闭时返回错误。成功后必须调用 release。
func (s *Settings) acquire(op string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return merr.WrapErrServiceClosed(op)
	}
	s.inflight.Add(1)
	return nil
}

func (s *Settings) release() {
	s.inflight.Done()
}

func negativeSlot(slot int) error {
	return merr.WrapErrParameterInvalidMsg("slot must not be negative, got %d", slot)
}

func (s *Settings) saveSlot(ctx context.Context, v any, slot int) Result {
	if slot < 0 {
		return Result{Slot: slot, Err: negativeSlot(slot)}
	}
	return s.save(ctx, v, s.SlotName(slot), slot)
}

func (s *Settings) loadSlot(ctx context.Context, target any, slot int) Result {
	if slot < 0 {
		return Result{Slot: slot, Err: negativeSlot(slot)}
	}
	return s.load(ctx, target, s.SlotName(slot), slot)
}

func (s *Settings) lastSlot(ctx context.Context) (int, bool) {
	slot, err := s.prefs.GetInt(ctx, s.cfg.LastSlotKey, NoSlot)
	if err != nil {
		log.Ctx(ctx).Warn("failed to read last slot", zap.String("key", s.cfg.LastSlotKey), zap.Error(err))
		return NoSlot, false
	}
	return slot, slot >= 0
}

func (s *Settings) save(ctx context.Context, v any, name string, slot int) Result {
	ctx, span := log.NewIntentContext(ctx, intentRole, "save")
	defer span.End()
	opID := uuid.New()
	ctx = log.WithOperation(ctx, "save", opID.String())
	s.emit(SaveStart, name, slot, opID, nil)

	err := s.fs.Save(ctx, v, name, s.cfg.SaveRawFile && s.cfg.Development)
	if err == nil && slot != NoSlot {
		err = s.prefs.SetInt(ctx, s.cfg.LastSlotKey, slot)
	}
	if err != nil {
		log.Ctx(ctx).Warn("save failed", log.FieldName(name), log.FieldSlot(slot), zap.Error(err))
		failSpan(span, err)
		s.emit(SaveError, name, slot, opID, err)
	} else {
		log.Ctx(ctx).Debug("saved", log.FieldName(name), log.FieldSlot(slot))
	}

	s.emit(SaveEnd, name, slot, opID, nil)
	return Result{Name: name, Slot: slot, Err: err}
}

func (s *Settings) load(ctx context.Context, target any, name string, slot int) Result {
	ctx, span := log.NewIntentContext(ctx, intentRole, "load")
	defer span.End()
	opID := uuid.New()
	ctx = log.WithOperation(ctx, "load", opID.String())
	s.emit(LoadStart, name, slot, opID, nil)

	found, err := s.fs.TryLoad(ctx, target, name, true)
	if err != nil {
		log.Ctx(ctx).Warn("load failed", log.FieldName(name), log.FieldSlot(slot), zap.Error(err))
		failSpan(span, err)
		s.emit(LoadError, name, slot, opID, err)
	} else {
		log.Ctx(ctx).Debug("loaded", log.FieldName(name), log.FieldSlot(slot), zap.Bool("found", found))
	}

	s.emit(LoadEnd, name, slot, opID, nil)
	return Result{Name: name, Slot: slot, Found: found, Err: err}
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Settings) emit(kind EventKind, name string, slot int, opID uuid.UUID, err error) {
	s.listeners.emit(Event{
		Kind:        kind,
		Name:        name,
		Slot:        slot,
		OperationID: opID,
		Err:         err,
		At:          time.Now(),
	})
}
