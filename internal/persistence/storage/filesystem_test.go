package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/persistence-go/internal/persistence"
	"github.com/lk2023060901/persistence-go/internal/persistence/codec"
	"github.com/lk2023060901/persistence-go/internal/persistence/compressor"
	"github.com/lk2023060901/persistence-go/internal/persistence/crypto"
	"github.com/lk2023060901/persistence-go/internal/persistence/serializer"
	"github.com/lk2023060901/persistence-go/pkg/metrics"
	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

const testKey = "H2h2xZe83AX90788QNqJXRiWX88xWI2b"

type player struct {
	Name  string   `json:"name"`
	Level int      `json:"level"`
	Items []string `json:"items"`
}

type failingStream struct {
	FileStream
	failWrite func(path string) bool
}

func (s failingStream) Write(ctx context.Context, path, content string) error {
	if s.failWrite(path) {
		return merr.WrapErrIoFailed(path, errors.New("disk full"))
	}
	return s.FileStream.Write(ctx, path, content)
}

// memStream 只实现 Stream，用来验证不依赖本地文件系统的路径。
type memStream struct {
	mu    sync.Mutex
	files map[string]string
}

func newMemStream() *memStream {
	return &memStream{files: make(map[string]string)}
}

func (m *memStream) Write(_ context.Context, path, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = content
	return nil
}

func (m *memStream) Read(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return "", merr.WrapErrIoKeyNotFound(path)
	}
	return content, nil
}

type readFailingStream struct {
	FileStream
}

func (readFailingStream) Read(_ context.Context, path string) (string, error) {
	return "", merr.WrapErrIoFailed(path, errors.New("device not ready"))
}

type FileSystemSuite struct {
	suite.Suite
	ctx  context.Context
	base string
	fs   *FileSystem
}

func (s *FileSystemSuite) SetupTest() {
	s.ctx = context.Background()
	s.base = s.T().TempDir()
	s.fs = s.newFS(compressor.GZip, crypto.AES, true, nil)
}

func (s *FileSystemSuite) newCodec(zt compressor.Type, ct crypto.Type) *codec.Codec {
	co, err := compressor.New(zt)
	s.Require().NoError(err)
	cr, err := crypto.New(ct, testKey)
	s.Require().NoError(err)
	c, err := codec.New(codec.Options{
		Serializer:    serializer.JSONSerializer{},
		Cryptographer: cr,
		Compressor:    co,
	})
	s.Require().NoError(err)
	return c
}

func (s *FileSystemSuite) newFS(zt compressor.Type, ct crypto.Type, pretty bool, stream Stream) *FileSystem {
	fsys, err := New(Options{
		BasePath:      s.base,
		Codec:         s.newCodec(zt, ct),
		Stream:        stream,
		PrettyAllowed: pretty,
	})
	s.Require().NoError(err)
	return fsys
}

func (s *FileSystemSuite) TestNewValidation() {
	_, err := New(Options{Codec: s.newCodec(compressor.None, crypto.None)})
	s.ErrorIs(err, merr.ErrParameterMissing)
	_, err = New(Options{BasePath: s.base})
	s.ErrorIs(err, merr.ErrParameterMissing)
}

func (s *FileSystemSuite) TestSaveAndLoad() {
	in := player{Name: "hero", Level: 3, Items: []string{"sword"}}
	s.Require().NoError(s.fs.Save(s.ctx, in, "slot", false))

	primary := filepath.Join(s.base, Folder, "slot.sv")
	s.FileExists(primary)
	s.NoFileExists(filepath.Join(s.base, Folder, "slot.json"))

	var out player
	found, err := s.fs.TryLoad(s.ctx, &out, "slot", true)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(in, out)
}

func (s *FileSystemSuite) TestLoadMissing() {
	var out player
	found, err := s.fs.TryLoad(s.ctx, &out, "nothing", true)
	s.NoError(err)
	s.False(found)

	found, err = s.fs.TryLoadFromPath(s.ctx, &out, filepath.Join(s.base, "missing.sv"))
	s.NoError(err)
	s.False(found)

	content, err := s.fs.LoadContent(s.ctx, "nothing", true)
	s.NoError(err)
	s.Empty(content)

	raw, err := s.fs.LoadCompressedContent(s.ctx, "nothing")
	s.NoError(err)
	s.Empty(raw)

	rc, err := s.fs.LoadStream(s.ctx, "nothing")
	s.NoError(err)
	s.Nil(rc)
}

func (s *FileSystemSuite) TestInvalidName() {
	s.ErrorIs(s.fs.Save(s.ctx, player{}, "   ", false), merr.ErrInvalidName)
	_, err := s.fs.TryLoad(s.ctx, &player{}, "", true)
	s.ErrorIs(err, merr.ErrInvalidName)
	s.ErrorIs(s.fs.Delete(s.ctx, ""), merr.ErrInvalidName)
}

func (s *FileSystemSuite) TestNameCannotLeaveDataPath() {
	for _, name := range []string{"../escape", "a/b", `a\b`, "..", ".", " .. "} {
		s.ErrorIs(s.fs.Save(s.ctx, player{}, name, false), merr.ErrInvalidName, name)
		_, err := s.fs.TryLoad(s.ctx, &player{}, name, true)
		s.ErrorIs(err, merr.ErrInvalidName, name)
		_, err = s.fs.LoadStream(s.ctx, name)
		s.ErrorIs(err, merr.ErrInvalidName, name)
		s.ErrorIs(s.fs.Delete(s.ctx, name), merr.ErrInvalidName, name)
	}
	s.NoFileExists(filepath.Join(s.base, "escape.sv"))
}

func (s *FileSystemSuite) TestDottedNameReplacesExtension() {
	s.Require().NoError(s.fs.Save(s.ctx, player{Name: "one"}, "level.1", false))
	s.Require().NoError(s.fs.Save(s.ctx, player{Name: "two"}, "level.2", false))
	s.FileExists(filepath.Join(s.base, Folder, "level.sv"))

	// 两个名字落到同一个文件，后写入的覆盖先写入的。
	var out player
	found, err := s.fs.TryLoad(s.ctx, &out, "level.1", true)
	s.Require().NoError(err)
	s.True(found)
	s.Equal("two", out.Name)

	names, err := s.fs.FileNames(s.ctx)
	s.NoError(err)
	s.Equal([]string{"level"}, names)
}

func (s *FileSystemSuite) TestStreamWithoutOptionalCapabilities() {
	stream := newMemStream()
	fsys := s.newFS(compressor.Zstd, crypto.AES, true, stream)

	in := player{Name: "mem", Level: 2, Items: []string{"key"}}
	s.Require().NoError(fsys.Save(s.ctx, in, "mem", true))
	s.NoDirExists(filepath.Join(s.base, Folder))
	s.Contains(stream.files, fsys.Path("mem", CompressedExtension))
	s.Contains(stream.files, fsys.Path("mem", "json"))

	var out player
	found, err := fsys.TryLoad(s.ctx, &out, "mem", true)
	s.Require().NoError(err)
	s.True(found)
	s.Equal(in, out)

	rc, err := fsys.LoadStream(s.ctx, "mem")
	s.Require().NoError(err)
	s.Require().NotNil(rc)
	raw, err := io.ReadAll(rc)
	s.Require().NoError(err)
	s.NoError(rc.Close())
	s.Equal(stream.files[fsys.Path("mem", CompressedExtension)], string(raw))

	rc, err = fsys.LoadStream(s.ctx, "absent")
	s.NoError(err)
	s.Nil(rc)

	s.NoError(fsys.CheckDataPath(s.ctx))
	_, err = fsys.FileNames(s.ctx)
	s.ErrorIs(err, merr.ErrOperationNotSupported)
	s.ErrorIs(fsys.Delete(s.ctx, "mem"), merr.ErrOperationNotSupported)
	s.ErrorIs(fsys.DeleteAll(s.ctx), merr.ErrOperationNotSupported)
}

func (s *FileSystemSuite) TestReadFailure() {
	fsys := s.newFS(compressor.None, crypto.None, true, readFailingStream{})
	for i := 0; i < 3; i++ {
		found, err := fsys.TryLoad(s.ctx, &player{}, "broken", true)
		s.False(found)
		s.ErrorIs(err, merr.ErrIoFailed)
		s.ErrorIs(err, persistence.ErrReadFailed)
	}
}

func (s *FileSystemSuite) TestNameTrimmed() {
	s.Require().NoError(s.fs.Save(s.ctx, player{Name: "a"}, "  padded  ", false))
	s.FileExists(filepath.Join(s.base, Folder, "padded.sv"))

	var out player
	found, err := s.fs.TryLoad(s.ctx, &out, "padded", true)
	s.NoError(err)
	s.True(found)
}

func (s *FileSystemSuite) TestDebugCopy() {
	in := player{Name: "hero", Level: 9}
	s.Require().NoError(s.fs.Save(s.ctx, in, "dbg", true))

	debugPath := filepath.Join(s.base, Folder, "dbg.json")
	s.FileExists(debugPath)
	b, err := os.ReadFile(debugPath)
	s.Require().NoError(err)
	s.Contains(string(b), "\n  \"name\": \"hero\"")

	var out player
	found, err := s.fs.TryLoad(s.ctx, &out, "dbg", false)
	s.NoError(err)
	s.True(found)
	s.Equal(in, out)

	// 调试副本与主存档互不影响。
	s.Require().NoError(os.Remove(debugPath))
	out = player{}
	found, err = s.fs.TryLoad(s.ctx, &out, "dbg", true)
	s.NoError(err)
	s.True(found)
	s.Equal(in, out)
}

func (s *FileSystemSuite) TestDebugCopyGatedByPrettyAllowed() {
	release := s.newFS(compressor.GZip, crypto.AES, false, nil)
	in := player{Name: "hero"}
	s.Require().NoError(release.Save(s.ctx, in, "rel", true))
	s.NoFileExists(filepath.Join(s.base, Folder, "rel.json"))

	// useCompressed=false 在不允许调试副本时按 true 处理。
	var out player
	found, err := release.TryLoad(s.ctx, &out, "rel", false)
	s.NoError(err)
	s.True(found)
	s.Equal(in, out)
}

func (s *FileSystemSuite) TestDebugCopyFailureKeepsPrimary() {
	stream := failingStream{failWrite: func(path string) bool { return filepath.Ext(path) == ".json" }}
	fsys := s.newFS(compressor.None, crypto.None, true, stream)

	err := fsys.Save(s.ctx, player{Name: "x"}, "partial", true)
	s.ErrorIs(err, merr.ErrIoFailed)
	s.ErrorIs(err, persistence.ErrWriteFailed)
	s.FileExists(filepath.Join(s.base, Folder, "partial.sv"))
}

func (s *FileSystemSuite) TestGZipBytesDiffer() {
	in := map[string]any{"name": "hero", "gold": 10.0}
	plain := s.newFS(compressor.None, crypto.None, true, nil)
	s.Require().NoError(plain.Save(s.ctx, in, "plain", false))
	s.Require().NoError(s.newFS(compressor.GZip, crypto.None, true, nil).Save(s.ctx, in, "packed", false))

	rawPlain, err := plain.LoadCompressedContent(s.ctx, "plain")
	s.Require().NoError(err)
	rawPacked, err := plain.LoadCompressedContent(s.ctx, "packed")
	s.Require().NoError(err)
	s.NotEqual(rawPlain, rawPacked)
	s.JSONEq(`{"name":"hero","gold":10}`, rawPlain)

	var a, b map[string]any
	_, err = plain.TryLoad(s.ctx, &a, "plain", true)
	s.Require().NoError(err)
	_, err = s.newFS(compressor.GZip, crypto.None, true, nil).TryLoad(s.ctx, &b, "packed", true)
	s.Require().NoError(err)
	s.Equal(a, b)
}

func (s *FileSystemSuite) TestWrongKeyDetected() {
	s.Require().NoError(s.fs.Save(s.ctx, player{Name: "x"}, "locked", false))

	other, err := crypto.NewAESCryptographer("0123456789abcdef")
	s.Require().NoError(err)
	co, _ := compressor.New(compressor.GZip)
	c, err := codec.New(codec.Options{Serializer: serializer.JSONSerializer{}, Cryptographer: other, Compressor: co})
	s.Require().NoError(err)
	fsys, err := New(Options{BasePath: s.base, Codec: c})
	s.Require().NoError(err)

	var out player
	found, err := fsys.TryLoad(s.ctx, &out, "locked", true)
	s.False(found)
	s.ErrorIs(err, merr.ErrDecrypt)
}

func (s *FileSystemSuite) TestDeleteIdempotent() {
	s.Require().NoError(s.fs.Save(s.ctx, player{}, "gone", true))
	s.Require().NoError(s.fs.Delete(s.ctx, "gone"))
	s.NoFileExists(filepath.Join(s.base, Folder, "gone.sv"))
	s.NoFileExists(filepath.Join(s.base, Folder, "gone.json"))

	s.NoError(s.fs.Delete(s.ctx, "gone"))
	s.NoError(s.fs.Delete(s.ctx, "never-existed"))
}

func (s *FileSystemSuite) TestFileNamesAndDeleteAll() {
	names, err := s.fs.FileNames(s.ctx)
	s.NoError(err)
	s.Empty(names)

	for _, n := range []string{"c", "a", "b"} {
		s.Require().NoError(s.fs.Save(s.ctx, player{Name: n}, n, true))
	}
	s.Require().NoError(os.WriteFile(filepath.Join(s.base, Folder, "note.txt"), []byte("x"), 0o644))
	s.Require().NoError(os.Mkdir(filepath.Join(s.base, Folder, "dir.sv"), 0o755))

	names, err = s.fs.FileNames(s.ctx)
	s.NoError(err)
	s.Equal([]string{"a", "b", "c"}, names)

	s.Require().NoError(s.fs.DeleteAll(s.ctx))
	names, err = s.fs.FileNames(s.ctx)
	s.NoError(err)
	s.Empty(names)
	s.FileExists(filepath.Join(s.base, Folder, "note.txt"))
}

func (s *FileSystemSuite) TestPath() {
	dp := filepath.Join(s.base, Folder)
	s.Equal(filepath.Join(dp, "save.sv"), s.fs.Path(" save ", CompressedExtension))
	s.Equal(filepath.Join(dp, "save.json"), s.fs.Path("save.sv", "json"))
	s.Equal("profile.sv", CompressedName("profile.json"))
	s.Equal("profile.sv", CompressedName("profile"))
}

func (s *FileSystemSuite) TestLoadStreamAndContent() {
	s.Require().NoError(s.fs.Save(s.ctx, player{Name: "hero"}, "stream", false))

	rc, err := s.fs.LoadStream(s.ctx, "stream")
	s.Require().NoError(err)
	s.Require().NotNil(rc)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	s.Require().NoError(err)

	compressed, err := s.fs.LoadCompressedContent(s.ctx, "stream")
	s.Require().NoError(err)
	s.Equal(compressed, string(raw))

	decoded, err := s.fs.LoadContent(s.ctx, "stream", true)
	s.Require().NoError(err)
	s.JSONEq(`{"name":"hero","level":0,"items":null}`, decoded)

	var out player
	ok, err := s.fs.TryDeserialize(s.ctx, &out, compressed, true)
	s.NoError(err)
	s.True(ok)
	s.Equal("hero", out.Name)

	out = player{}
	ok, err = s.fs.TryDeserialize(s.ctx, &out, decoded, false)
	s.NoError(err)
	s.True(ok)
	s.Equal("hero", out.Name)

	ok, err = s.fs.TryDeserialize(s.ctx, &out, "", true)
	s.NoError(err)
	s.False(ok)
}

func (s *FileSystemSuite) TestTryLoadFromPath() {
	in := player{Name: "path"}
	s.Require().NoError(s.fs.Save(s.ctx, in, "bypath", true))

	var out player
	found, err := s.fs.TryLoadFromPath(s.ctx, &out, s.fs.Path("bypath", CompressedExtension))
	s.NoError(err)
	s.True(found)
	s.Equal(in, out)

	out = player{}
	found, err = s.fs.TryLoadFromPath(s.ctx, &out, s.fs.Path("bypath", "json"))
	s.NoError(err)
	s.True(found)
	s.Equal(in, out)
}

func (s *FileSystemSuite) TestFlusher() {
	calls := 0
	fsys, err := New(Options{
		BasePath: s.base,
		Codec:    s.newCodec(compressor.None, crypto.None),
		Flusher: FlusherFunc(func(context.Context) error {
			calls++
			return nil
		}),
	})
	s.Require().NoError(err)

	s.Require().NoError(fsys.Save(s.ctx, player{}, "f", false))
	s.Require().NoError(fsys.Delete(s.ctx, "f"))
	s.Equal(2, calls)

	boom := errors.New("flush failed")
	fsys, err = New(Options{
		BasePath: s.base,
		Codec:    s.newCodec(compressor.None, crypto.None),
		Flusher:  FlusherFunc(func(context.Context) error { return boom }),
	})
	s.Require().NoError(err)
	err = fsys.Save(s.ctx, player{}, "f", false)
	s.ErrorIs(err, boom)
	s.ErrorIs(err, persistence.ErrFlushFailed)
}

func (s *FileSystemSuite) TestMetrics() {
	before := testutil.ToFloat64(metrics.OperationTotal.WithLabelValues(metrics.LoadLabel, metrics.MissLabel))
	_, err := s.fs.TryLoad(s.ctx, &player{}, "absent", true)
	s.Require().NoError(err)
	after := testutil.ToFloat64(metrics.OperationTotal.WithLabelValues(metrics.LoadLabel, metrics.MissLabel))
	s.Equal(before+1, after)
}

func TestFileSystem(t *testing.T) {
	suite.Run(t, new(FileSystemSuite))
}
