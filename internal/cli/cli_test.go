package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type CLISuite struct {
	suite.Suite
	config string
	data   string
}

func (s *CLISuite) SetupTest() {
	dir := s.T().TempDir()
	s.data = filepath.Join(dir, "data")
	s.config = filepath.Join(dir, "config.yaml")
	s.Require().NoError(os.WriteFile(s.config, []byte("persistence:\n  compressor: gzip\n  cryptographer: aes\n  development: false\n"), 0o644))
}

func (s *CLISuite) run(stdin string, args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", s.config, "--data-path", s.data}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLISuite) TestSaveLoadList() {
	out, err := s.run(`{"hero":"Aria","gold":12}`, "save", "progress")
	s.Require().NoError(err)
	s.Contains(out, "saved progress")

	out, err = s.run("", "load", "progress")
	s.Require().NoError(err)
	s.Contains(out, `"hero": "Aria"`)
	s.Contains(out, `"gold": 12`)

	out, err = s.run("", "list")
	s.Require().NoError(err)
	s.Equal("progress\n", out)
}

func (s *CLISuite) TestSlotAndLast() {
	_, err := s.run(`{"chapter":3}`, "save", "--slot", "2")
	s.Require().NoError(err)

	out, err := s.run("", "load", "--last")
	s.Require().NoError(err)
	s.Contains(out, `"chapter": 3`)

	out, err = s.run("", "info")
	s.Require().NoError(err)
	s.Contains(out, "saves:         1")
	s.Contains(out, "last slot:     2")
}

func (s *CLISuite) TestSaveFromFile() {
	input := filepath.Join(s.T().TempDir(), "in.json")
	s.Require().NoError(os.WriteFile(input, []byte(`{"a":[1,2]}`), 0o644))
	_, err := s.run("", "save", "from-file", "--file", input, "--debug-copy")
	s.Require().NoError(err)
	s.FileExists(filepath.Join(s.data, "Persistence", "from-file.json"))
}

func (s *CLISuite) TestInspect() {
	_, err := s.run(`{"k":"v"}`, "save", "x")
	s.Require().NoError(err)

	out, err := s.run("", "inspect", "x")
	s.Require().NoError(err)
	s.Contains(out, "xxhash64:")
	s.Contains(out, `"k":"v"`)

	raw, err := s.run("", "inspect", "x", "--raw")
	s.Require().NoError(err)
	s.NotContains(raw, `"k":"v"`)

	_, err = s.run("", "inspect", "missing")
	s.Error(err)
}

func (s *CLISuite) TestDelete() {
	_, err := s.run(`{}`, "save", "a")
	s.Require().NoError(err)
	_, err = s.run(`{}`, "save", "b")
	s.Require().NoError(err)

	_, err = s.run("", "delete", "a")
	s.Require().NoError(err)
	out, err := s.run("", "list")
	s.Require().NoError(err)
	s.Equal("b\n", out)

	_, err = s.run("", "delete", "--all")
	s.Require().NoError(err)
	out, err = s.run("", "list")
	s.Require().NoError(err)
	s.Empty(out)

	_, err = s.run("", "delete")
	s.Error(err)
}

func (s *CLISuite) TestArgumentErrors() {
	_, err := s.run(`{}`, "save")
	s.Error(err)
	_, err = s.run("", "load")
	s.Error(err)
	_, err = s.run("not json", "save", "bad")
	s.Error(err)
	_, err = s.run("", "load", "absent")
	s.Error(err)
}

func (s *CLISuite) TestConfigMasksKey() {
	out, err := s.run("", "config")
	s.Require().NoError(err)
	s.Contains(out, "compressor: gzip")
	s.Contains(out, maskedKey)
	s.NotContains(out, "H2h2xZe83AX90788QNqJXRiWX88xWI2b")
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("", "version")
	s.Require().NoError(err)
	s.Contains(out, "development:")
}

func TestCLI(t *testing.T) {
	suite.Run(t, new(CLISuite))
}
