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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case persistError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func GetErrorType(err error) ErrorType {
	if perr, ok := errors.Cause(err).(persistError); ok {
		return perr.errType
	}
	return SystemError
}

// 配置 / 可用性相关
func WrapErrSerializerUnavailable(kind any, reason string) error {
	return wrapFieldsWithDesc(ErrSerializerUnavailable, reason, value("serializer", kind))
}

func WrapErrStrategyUnknown(stage string, kind any) error {
	return wrapFields(ErrStrategyUnknown, value("stage", stage), value("kind", kind))
}

func WrapErrKeyInvalid(length int, msg ...string) error {
	err := wrapFields(ErrKeyInvalid, value("length", length))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// IO 相关
func WrapErrIoKeyNotFound(key string, msg ...string) error {
	err := wrapFields(ErrIoKeyNotFound, value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrIoFailed(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrIoFailed, err, value("key", key))
}

func WrapErrInvalidName(name string) error {
	return wrapFields(ErrInvalidName, value("name", name))
}

// 参数相关
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(format string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, format, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// 内容格式相关
func WrapErrFormat(kind string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrFormat, err, value("format", kind))
}

func WrapErrSerialize(kind string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrSerialize, err, value("format", kind))
}

func WrapErrEncrypt(err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrEncrypt, err)
}

func WrapErrDecrypt(err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrDecrypt, err)
}

func WrapErrCompress(kind string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrCompress, err, value("compressor", kind))
}

func WrapErrDecompress(kind string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrDecompress, err, value("compressor", kind))
}

// 偏好存储相关
func WrapErrPreferences(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapCause(ErrPreferences, err, value("key", key))
}

func WrapErrOperationNotSupported(op string, msg ...string) error {
	err := wrapFields(ErrOperationNotSupported, value("operation", op))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrServiceClosed(op string) error {
	return wrapFields(ErrServiceClosed, value("operation", op))
}

func wrapFields(err persistError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err persistError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

func wrapCause(err persistError, cause error, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg + ": " + cause.Error()
	return &causeError{perr: err, cause: cause}
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}
