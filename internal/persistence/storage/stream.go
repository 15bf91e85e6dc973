package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/samber/lo"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

// Stream 是存档文件读写的唯一 IO 边界。
//
// 实现必须整体覆盖写入；读取不存在的路径时返回 merr.ErrIoKeyNotFound。
type Stream interface {
	Write(ctx context.Context, path, content string) error
	Read(ctx context.Context, path string) (string, error)
}

// Remover 由支持删除的 Stream 额外实现，删除不存在的路径不是错误。
type Remover interface {
	Remove(ctx context.Context, path string) error
}

// Lister 由支持列举的 Stream 额外实现。
// 返回 dir 下扩展名为 ext 的条目名（不含扩展名），按字典序排列；dir 不存在时返回空列表。
type Lister interface {
	List(ctx context.Context, dir, ext string) ([]string, error)
}

// Opener 由支持流式读取的 Stream 额外实现；路径不存在时返回 merr.ErrIoKeyNotFound。
type Opener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// DirMaker 由需要预先建立目录的 Stream 额外实现。
type DirMaker interface {
	MkdirAll(ctx context.Context, dir string) error
}

// Flusher 在写入或删除之后把变更落到持久介质上。
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopFlusher 不做任何事，本地文件系统不需要额外的刷写。
type NopFlusher struct{}

func (NopFlusher) Flush(context.Context) error { return nil }

// FlusherFunc 把普通函数适配为 Flusher。
type FlusherFunc func(ctx context.Context) error

func (f FlusherFunc) Flush(ctx context.Context) error { return f(ctx) }

// FileStream 基于本地文件系统的 Stream 实现。
type FileStream struct{}

var (
	_ Stream   = FileStream{}
	_ Remover  = FileStream{}
	_ Lister   = FileStream{}
	_ Opener   = FileStream{}
	_ DirMaker = FileStream{}
)

const (
	fileMode = 0o644
	dirMode  = 0o755
)

func (FileStream) Write(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		return merr.WrapErrIoFailed(path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return merr.WrapErrIoFailed(path, err)
	}
	return merr.WrapErrIoFailed(path, f.Close())
}

func (FileStream) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", merr.WrapErrIoKeyNotFound(path)
		}
		return "", merr.WrapErrIoFailed(path, err)
	}
	return string(b), nil
}

func (FileStream) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return merr.WrapErrIoFailed(path, err)
	}
	return nil
}

func (FileStream) List(ctx context.Context, dir, ext string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirents, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, merr.WrapErrIoFailed(dir, err)
	}

	suffix := "." + ext
	names := lo.FilterMap(dirents, func(de *godirwalk.Dirent, _ int) (string, bool) {
		if !de.IsRegular() || !strings.HasSuffix(de.Name(), suffix) {
			return "", false
		}
		return strings.TrimSuffix(de.Name(), suffix), true
	})
	slices.Sort(names)
	return names, nil
}

func (FileStream) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, merr.WrapErrIoKeyNotFound(path)
		}
		return nil, merr.WrapErrIoFailed(path, err)
	}
	return f, nil
}

func (FileStream) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return merr.WrapErrIoFailed(dir, err)
	}
	return nil
}
