package resultstore

import (
	"fmt"
	"strings"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const runKeyPrefix = "run:"

// LevelStore implements Store on top of LevelDB, the archive backend the
// CLI's archive/history subcommands use by default.
type LevelStore struct {
	db *leveldb.DB
}

// Open opens (or creates) a LevelDB archive at path.
func Open(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open resultstore %q: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Put(result RunResult) error {
	data, err := encode(result)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(runKeyPrefix+result.RunID), data, nil)
}

func (s *LevelStore) Get(runID string) (RunResult, error) {
	data, err := s.db.Get([]byte(runKeyPrefix+runID), nil)
	if err == leveldb.ErrNotFound {
		return RunResult{}, ErrNotFound
	}
	if err != nil {
		return RunResult{}, fmt.Errorf("get run %q: %w", runID, err)
	}
	return decode(data)
}

func (s *LevelStore) List() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runKeyPrefix)), nil)
	defer iter.Release()
	var ids []string
	for iter.Next() {
		ids = append(ids, strings.TrimPrefix(string(iter.Key()), runKeyPrefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return ids, nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
