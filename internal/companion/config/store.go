package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/teachcharlie/tcagent/internal/common/apperrors"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
)

// Store reads and writes config.json. The mirror lock guards the in-memory record and is
// never held during file I/O. ioMu serializes file access, so the mirror is always
// replaced in the same order the file was read or written.
type Store struct {
	path string

	ioMu sync.Mutex

	mu     sync.Mutex
	mirror Record
}

// NewStore returns a Store for the file at path with an unset mirror.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the absolute path of the configuration file.
func (s *Store) Path() string {
	return s.path
}

// Current returns a copy of the in-memory record.
func (s *Store) Current() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.Clone()
}

func (s *Store) setMirror(r Record) {
	s.mu.Lock()
	s.mirror = r.Clone()
	s.mu.Unlock()
}

// Load reads the file and replaces the mirror. A missing file yields an unset record.
func (s *Store) Load() (Record, apperrors.Error) {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.setMirror(Record{})
			return Record{}, nil
		}
		return Record{}, agentcommon.ErrIO.MsgErr("unable to read config file", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, agentcommon.ErrFormat.MsgErr("unable to parse config file", err)
	}
	s.setMirror(r)
	return r.Clone(), nil
}

// Store writes the whole record to disk and then replaces the mirror.
func (s *Store) Store(r Record) apperrors.Error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return agentcommon.ErrFormat.MsgErr("unable to serialize config", err)
	}
	data = append(data, '\n')

	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	if err := WriteFileAtomic(s.path, data, 0600); err != nil {
		return err
	}
	s.setMirror(r)
	log.Debug().Str("path", s.path).Msg("config stored")
	return nil
}

// WriteFileAtomic writes data to a temp file in the target directory and renames it
// over path, so readers observe either the old or the new contents.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) apperrors.Error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return agentcommon.ErrIO.MsgErr("unable to create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return agentcommon.ErrIO.MsgErr("unable to create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return agentcommon.ErrIO.MsgErr("unable to write file", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return agentcommon.ErrIO.MsgErr("unable to sync file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return agentcommon.ErrIO.MsgErr("unable to close file", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return agentcommon.ErrIO.MsgErr("unable to set file mode", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return agentcommon.ErrIO.MsgErr("unable to replace file", err)
	}
	return nil
}

