package settings

import (
	"context"

	"github.com/lk2023060901/persistence-go/pkg/util/conc"
)

// 异步接口在协程池中执行对应的同步操作。
// 操作本身的错误放在 Result.Err 中，Future 的错误只表示没有被执行（Settings 已关闭或协程池拒绝）。
// 已提交的任务会在 Close 返回前执行完毕。

func (s *Settings) SaveAsync(ctx context.Context, v any, name string) *conc.Future[Result] {
	return s.submit("save", func() Result {
		return s.save(ctx, v, name, NoSlot)
	})
}

func (s *Settings) SaveSlotAsync(ctx context.Context, v any, slot int) *conc.Future[Result] {
	return s.submit("save", func() Result {
		return s.saveSlot(ctx, v, slot)
	})
}

func (s *Settings) TryLoadAsync(ctx context.Context, target any, name string) *conc.Future[Result] {
	return s.submit("load", func() Result {
		return s.load(ctx, target, name, NoSlot)
	})
}

func (s *Settings) submit(op string, task func() Result) *conc.Future[Result] {
	if err := s.acquire(op); err != nil {
		return conc.Failed[Result](err)
	}
	future, err := s.pool.TrySubmit(func() (Result, error) {
		defer s.release()
		return task(), nil
	})
	if err != nil {
		s.release()
		return conc.Failed[Result](err)
	}
	return future
}
