// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package conc

import (
	"fmt"
	"sync"

	ants "github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
)

// Pool 基于 ants 的泛型协程池，Submit 返回 Future。
type Pool[T any] struct {
	inner     *ants.Pool
	opt       *poolOption
	submitted atomic.Int64
	pending   sync.WaitGroup
}

// NewPool 创建容量为 cap 的协程池；cap <= 0 时 ants 不限制容量。
func NewPool[T any](cap int, opts ...PoolOption) *Pool[T] {
	opt := &poolOption{}
	for _, o := range opts {
		o(opt)
	}

	pool, err := ants.NewPool(cap, opt.antsOptions()...)
	if err != nil {
		panic(err)
	}

	return &Pool[T]{
		inner: pool,
		opt:   opt,
	}
}

// Submit 提交一个任务，任务结果通过 Future 取回。
// 提交本身失败（如池已关闭）时，Future 立即以错误结束。
func (pool *Pool[T]) Submit(method func() (T, error)) *Future[T] {
	future, err := pool.TrySubmit(method)
	if err != nil {
		return Failed[T](err)
	}
	return future
}

// TrySubmit 与 Submit 相同，但提交失败时直接返回错误，此时 method 不会被执行。
func (pool *Pool[T]) TrySubmit(method func() (T, error)) (*Future[T], error) {
	future := newFuture[T]()
	pool.submitted.Inc()
	pool.pending.Add(1)
	err := pool.inner.Submit(func() {
		defer pool.pending.Done()
		defer close(future.ch)
		defer func() {
			if x := recover(); x != nil {
				future.err = fmt.Errorf("panicked with error: %v", x)
				panic(x)
			}
		}()
		res, err := method()
		if err != nil {
			future.err = err
		} else {
			future.value = res
		}
	})
	if err != nil {
		pool.pending.Done()
		return nil, err
	}
	return future, nil
}

// Wait 阻塞直到所有已接受的任务执行完毕。
func (pool *Pool[T]) Wait() {
	pool.pending.Wait()
}

// Cap 返回协程池容量。
func (pool *Pool[T]) Cap() int {
	return pool.inner.Cap()
}

// Running 返回正在运行的 worker 数量。
func (pool *Pool[T]) Running() int {
	return pool.inner.Running()
}

// Submitted 返回累计提交的任务数。
func (pool *Pool[T]) Submitted() int64 {
	return pool.submitted.Load()
}

// Release 关闭协程池，之后的 Submit 都会失败。
// 正在执行的任务不会被等待，需要时先调用 Wait。
func (pool *Pool[T]) Release() {
	pool.inner.Release()
}
