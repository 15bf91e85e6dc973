// Package persistence 定义存档流水线各阶段共享的阶段标识和错误。
package persistence

import "errors"

// Stage 表示存档流水线中的处理阶段。
//
// 主要用于在日志和事件中标记错误发生的位置。
type Stage string

const (
	StageSerialize   Stage = "serialize"
	StageEncrypt     Stage = "encrypt"
	StageCompress    Stage = "compress"
	StageWrite       Stage = "write"
	StageRead        Stage = "read"
	StageDecompress  Stage = "decompress"
	StageDecrypt     Stage = "decrypt"
	StageDeserialize Stage = "deserialize"
	StageFlush       Stage = "flush"
)

// 统一的错误码常量，用于日志/监控的稳定字符串。
const (
	ErrCodeSerializeFailed   = "persistence:serialize_failed"
	ErrCodeEncryptFailed     = "persistence:encrypt_failed"
	ErrCodeCompressFailed    = "persistence:compress_failed"
	ErrCodeWriteFailed       = "persistence:write_failed"
	ErrCodeReadFailed        = "persistence:read_failed"
	ErrCodeDecompressFailed  = "persistence:decompress_failed"
	ErrCodeDecryptFailed     = "persistence:decrypt_failed"
	ErrCodeDeserializeFailed = "persistence:deserialize_failed"
	ErrCodeFlushFailed       = "persistence:flush_failed"
)

var (
	ErrSerializeFailed   = errors.New(ErrCodeSerializeFailed)
	ErrEncryptFailed     = errors.New(ErrCodeEncryptFailed)
	ErrCompressFailed    = errors.New(ErrCodeCompressFailed)
	ErrWriteFailed       = errors.New(ErrCodeWriteFailed)
	ErrReadFailed        = errors.New(ErrCodeReadFailed)
	ErrDecompressFailed  = errors.New(ErrCodeDecompressFailed)
	ErrDecryptFailed     = errors.New(ErrCodeDecryptFailed)
	ErrDeserializeFailed = errors.New(ErrCodeDeserializeFailed)
	ErrFlushFailed       = errors.New(ErrCodeFlushFailed)
)

var stageErrors = map[Stage]error{
	StageSerialize:   ErrSerializeFailed,
	StageEncrypt:     ErrEncryptFailed,
	StageCompress:    ErrCompressFailed,
	StageWrite:       ErrWriteFailed,
	StageRead:        ErrReadFailed,
	StageDecompress:  ErrDecompressFailed,
	StageDecrypt:     ErrDecryptFailed,
	StageDeserialize: ErrDeserializeFailed,
	StageFlush:       ErrFlushFailed,
}

// StageError 记录出错的阶段与底层原因。
//
// errors.Is 对阶段哨兵错误和底层原因都成立。
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return "persistence: " + string(e.Stage) + " failed: " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func (e *StageError) Is(target error) bool {
	sentinel, ok := stageErrors[e.Stage]
	return ok && sentinel == target
}

// WrapStage 用阶段信息包装 err，err 为 nil 时返回 nil。
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf 返回错误链上最外层的阶段。
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
