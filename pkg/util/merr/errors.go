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

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// 叶子错误统一在这里定义。
// 新增错误前先确认下面已有的错误是否可以复用。
// 命名：Err + 分类前缀 + 错误名
var (
	// 配置 / 可用性相关：在构造阶段即失败。
	ErrSerializerUnavailable = newPersistError("serializer unavailable", 100, WithErrorType(InputError))
	ErrStrategyUnknown       = newPersistError("unknown strategy", 101, WithErrorType(InputError))
	ErrKeyInvalid            = newPersistError("invalid cryptographer key", 102, WithErrorType(InputError))

	// IO 相关
	ErrIoKeyNotFound = newPersistError("key not found", 1000)
	ErrIoFailed      = newPersistError("IO failed", 1001)
	ErrInvalidName   = newPersistError("invalid file name", 1002, WithErrorType(InputError))

	// 参数相关
	ErrParameterInvalid = newPersistError("invalid parameter", 1100, WithErrorType(InputError))
	ErrParameterMissing = newPersistError("missing parameter", 1101, WithErrorType(InputError))

	// 内容格式相关：解压 / 解密 / 反序列化失败都归入此类。
	ErrFormat     = newPersistError("malformed content", 2000)
	ErrSerialize  = newPersistError("serialize failed", 2001)
	ErrEncrypt    = newPersistError("encrypt failed", 2002)
	ErrDecrypt    = newPersistError("decrypt failed", 2003)
	ErrCompress   = newPersistError("compress failed", 2004)
	ErrDecompress = newPersistError("decompress failed", 2005)

	// 偏好存储相关
	ErrPreferences = newPersistError("preference store failed", 3000)

	// General
	ErrOperationNotSupported = newPersistError("unsupported operation", 9000)
	ErrServiceClosed         = newPersistError("service closed", 9001)

	// 不要导出。
	// 仅用于把未知错误转换为 persistError。
	errUnexpected = newPersistError("unexpected error", (1<<16)-1)
)

type errorOption func(*persistError)

func WithDetail(detail string) errorOption {
	return func(err *persistError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *persistError) {
		err.errType = etype
	}
}

type persistError struct {
	msg     string
	detail  string
	errCode int32
	errType ErrorType
}

func newPersistError(msg string, code int32, options ...errorOption) persistError {
	err := persistError{
		msg:     msg,
		detail:  msg,
		errCode: code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e persistError) code() int32 {
	return e.errCode
}

func (e persistError) Error() string {
	return e.msg
}

func (e persistError) Detail() string {
	return e.detail
}

func (e persistError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(persistError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

// causeError 同时保留错误码与底层原因，errors.Is 对两者都成立。
type causeError struct {
	perr  persistError
	cause error
}

func (e *causeError) Error() string {
	return e.perr.msg + ": " + e.cause.Error()
}

func (e *causeError) Unwrap() []error {
	return []error{e.perr, e.cause}
}

// Cause 让 errors.Cause 落到带错误码的 persistError 上。
func (e *causeError) Cause() error {
	return e.perr
}

func (e *causeError) Is(err error) bool {
	return e.perr.Is(err) || errors.Is(e.cause, err)
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

// Combine 合并多个错误，nil 会被忽略；全部为 nil 时返回 nil。
func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
