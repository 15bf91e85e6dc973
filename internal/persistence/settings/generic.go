package settings

import "context"

// Load 读取 name 对应的存档，失败或不存在时返回 T 的零值。
//
// T 为值类型，Protobuf 消息请使用 TryLoad 并传入消息指针。
func Load[T any](ctx context.Context, s *Settings, name string) (T, Result) {
	var v T
	r := s.TryLoad(ctx, &v, name)
	if !r.Ok() || !r.Found {
		var zero T
		return zero, r
	}
	return v, r
}

// LoadSlot 读取槽位 slot 的存档，失败或不存在时返回 T 的零值。
func LoadSlot[T any](ctx context.Context, s *Settings, slot int) (T, Result) {
	var v T
	r := s.TryLoadSlot(ctx, &v, slot)
	if !r.Ok() || !r.Found {
		var zero T
		return zero, r
	}
	return v, r
}

// LoadLastSlot 读取最近槽位的存档，失败或不存在时返回 T 的零值。
func LoadLastSlot[T any](ctx context.Context, s *Settings) (T, Result) {
	var v T
	r := s.TryLoadLastSlot(ctx, &v)
	if !r.Ok() || !r.Found {
		var zero T
		return zero, r
	}
	return v, r
}
