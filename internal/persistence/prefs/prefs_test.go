package prefs

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/persistence-go/pkg/util/merr"
)

type PrefsSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *PrefsSuite) SetupTest() {
	s.ctx = context.Background()
}

func (s *PrefsSuite) exercise(store Store) {
	v, err := store.GetInt(s.ctx, "LastSlot", -1)
	s.Require().NoError(err)
	s.Equal(-1, v)

	s.Require().NoError(store.SetInt(s.ctx, "LastSlot", 3))
	v, err = store.GetInt(s.ctx, "LastSlot", -1)
	s.Require().NoError(err)
	s.Equal(3, v)

	s.Require().NoError(store.SetInt(s.ctx, "LastSlot", 0))
	v, err = store.GetInt(s.ctx, "LastSlot", -1)
	s.Require().NoError(err)
	s.Equal(0, v)

	s.Require().NoError(store.Delete(s.ctx, "LastSlot"))
	s.Require().NoError(store.Delete(s.ctx, "LastSlot"))
	v, err = store.GetInt(s.ctx, "LastSlot", -1)
	s.Require().NoError(err)
	s.Equal(-1, v)
}

func (s *PrefsSuite) TestDriversInMemory() {
	for _, driver := range Drivers() {
		s.Run(driver, func() {
			store, err := Open(Config{Driver: driver})
			s.Require().NoError(err)
			defer store.Close()
			s.exercise(store)
		})
	}
}

func (s *PrefsSuite) TestFileDriversPersist() {
	for _, driver := range []string{DriverBuntDB, DriverSQLite} {
		s.Run(driver, func() {
			path := filepath.Join(s.T().TempDir(), "nested", "preferences.db")
			store, err := Open(Config{Driver: driver, Path: path})
			s.Require().NoError(err)
			s.Require().NoError(store.SetInt(s.ctx, "LastSlot", 7))
			s.Require().NoError(store.Close())

			reopened, err := Open(Config{Driver: driver, Path: path})
			s.Require().NoError(err)
			defer reopened.Close()
			v, err := reopened.GetInt(s.ctx, "LastSlot", -1)
			s.Require().NoError(err)
			s.Equal(7, v)
		})
	}
}

func (s *PrefsSuite) TestConcurrentSet() {
	for _, driver := range Drivers() {
		s.Run(driver, func() {
			store, err := Open(Config{Driver: driver})
			s.Require().NoError(err)
			defer store.Close()

			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					s.NoError(store.SetInt(s.ctx, "k", i))
				}()
			}
			wg.Wait()
			v, err := store.GetInt(s.ctx, "k", -1)
			s.NoError(err)
			s.GreaterOrEqual(v, 0)
			s.Less(v, 16)
		})
	}
}

func (s *PrefsSuite) TestUnknownDriver() {
	_, err := Open(Config{Driver: "redis"})
	s.ErrorIs(err, merr.ErrParameterInvalid)
}

func TestPrefs(t *testing.T) {
	suite.Run(t, new(PrefsSuite))
}
