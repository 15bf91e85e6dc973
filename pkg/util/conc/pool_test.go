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
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PoolSuite struct {
	suite.Suite
}

func (s *PoolSuite) TestSubmit() {
	pool := NewPool[int](4, WithPreAlloc(true), WithExpiryDuration(time.Minute))
	defer pool.Release()

	futures := make([]*Future[int], 0, 10)
	for i := 0; i < 10; i++ {
		futures = append(futures, pool.Submit(func() (int, error) {
			return i * i, nil
		}))
	}
	for i, f := range futures {
		v, err := f.Await()
		s.NoError(err)
		s.Equal(i*i, v)
		s.True(f.Done())
	}
	s.EqualValues(10, pool.Submitted())
	s.Equal(4, pool.Cap())
}

func (s *PoolSuite) TestSubmitError() {
	pool := NewPool[string](1)
	defer pool.Release()

	boom := errors.New("boom")
	f := pool.Submit(func() (string, error) {
		return "ignored", boom
	})
	v, err := f.Await()
	s.ErrorIs(err, boom)
	s.Empty(v)
}

func (s *PoolSuite) TestSubmitAfterRelease() {
	pool := NewPool[int](1)
	pool.Release()

	f := pool.Submit(func() (int, error) { return 1, nil })
	s.True(f.Done())
	s.Error(f.Err())
	pool.Wait()
}

func (s *PoolSuite) TestTrySubmit() {
	pool := NewPool[int](1)

	f, err := pool.TrySubmit(func() (int, error) { return 3, nil })
	s.Require().NoError(err)
	v, err := f.Await()
	s.NoError(err)
	s.Equal(3, v)

	pool.Release()
	ran := false
	f, err = pool.TrySubmit(func() (int, error) {
		ran = true
		return 0, nil
	})
	s.Error(err)
	s.Nil(f)
	pool.Wait()
	s.False(ran)
}

func (s *PoolSuite) TestWaitDrainsAcceptedTasks() {
	pool := NewPool[int](2)
	defer pool.Release()

	var finished atomic.Int32
	for i := 0; i < 6; i++ {
		pool.Submit(func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			finished.Add(1)
			return 0, nil
		})
	}
	pool.Wait()
	s.EqualValues(6, finished.Load())
}

func (s *PoolSuite) TestPanicHandler() {
	recovered := make(chan any, 1)
	pool := NewPool[int](1, WithPanicHandler(func(v any) { recovered <- v }))
	defer pool.Release()

	err := pool.Submit(func() (int, error) { panic("bad value") }).Err()
	s.ErrorContains(err, "bad value")
	select {
	case v := <-recovered:
		s.Equal("bad value", v)
	case <-time.After(time.Second):
		s.Fail("panic handler not called")
	}

	v, err := pool.Submit(func() (int, error) { return 7, nil }).Await()
	s.NoError(err)
	s.Equal(7, v)
	pool.Wait()
}

func (s *PoolSuite) TestFailed() {
	boom := errors.New("closed")
	f := Failed[int](boom)
	s.True(f.Done())
	v, err := f.Await()
	s.ErrorIs(err, boom)
	s.Zero(v)
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}
