// Copyright 2021 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// InitTestLogger 返回一个输出到 t.Logf 的 Logger，单元测试中可与 ReplaceGlobals 配合。
// zap 自身的内部错误同样写到 t 上，并使测试失败。
func InitTestLogger(t zaptest.TestingT, cfg *Config, opts ...zap.Option) (*zap.Logger, *ZapProperties, error) {
	out := tWriter{t: t}
	opts = append([]zap.Option{zap.ErrorOutput(tWriter{t: t, fail: true})}, opts...)
	return InitLoggerWithWriteSyncer(cfg, out, opts...)
}

// tWriter 把每条编码好的日志转交给 t.Logf。
type tWriter struct {
	t    zaptest.TestingT
	fail bool
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", bytes.TrimSuffix(p, []byte("\n")))
	if w.fail {
		w.t.Fail()
	}
	return len(p), nil
}

func (tWriter) Sync() error { return nil }
