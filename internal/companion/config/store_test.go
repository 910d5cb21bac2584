package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teachcharlie/tcagent/internal/companion/agentcommon"
	"github.com/tidwall/gjson"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "config.json"))
}

func TestStoreRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"empty", Record{}},
		{"api url only", Record{APIURL: String("https://app.teachcharlie.ai")}},
		{"all fields", Record{
			APIURL:       String("http://localhost:3000"),
			MCPToken:     String("tok-123"),
			SessionToken: String("sess"),
			AutoStart:    Bool(true),
		}},
		{"auto start false", Record{AutoStart: Bool(false)}},
		{"empty strings", Record{APIURL: String(""), MCPToken: String("")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, s.Store(tt.rec))
			assert.Equal(t, tt.rec, s.Current())

			fresh := NewStore(s.Path())
			got, err := fresh.Load()
			require.Nil(t, err)
			assert.Equal(t, tt.rec, got)
			assert.Equal(t, tt.rec, fresh.Current())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Store(Record{MCPToken: String("x")}))
	require.NoError(t, os.Remove(s.Path()))

	got, err := s.Load()
	require.Nil(t, err)
	assert.True(t, got.IsEmpty())
	assert.True(t, s.Current().IsEmpty(), "mirror is replaced with the unset record")
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
		require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))
		_, err := s.Load()
		require.NotNil(t, err)
		assert.True(t, errors.Is(err, agentcommon.ErrFormat))
	})
	t.Run("unreadable", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, os.MkdirAll(s.Path(), 0700)) // a directory cannot be read as a file
		_, err := s.Load()
		require.NotNil(t, err)
		assert.True(t, errors.Is(err, agentcommon.ErrIO))
	})
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"api_url":"u","theme":"dark"}`), 0600))
	got, err := s.Load()
	require.Nil(t, err)
	assert.Equal(t, Record{APIURL: String("u")}, got)
}

func TestStoreFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Store(Record{MCPToken: String("T")}))
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	assert.True(t, gjson.ValidBytes(data))
	assert.Equal(t, "T", gjson.GetBytes(data, "mcp_token").String())
	assert.Equal(t, gjson.Null, gjson.GetBytes(data, "api_url").Type)
	assert.Equal(t, gjson.Null, gjson.GetBytes(data, "clerk_session").Type)
	assert.Contains(t, string(data), "\n  \"mcp_token\": \"T\"")
	assert.Equal(t, byte('\n'), data[len(data)-1])
}

func TestStoreDirectoryFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))
	s := NewStore(filepath.Join(blocker, "config.json"))
	err := s.Store(Record{APIURL: String("u")})
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, agentcommon.ErrIO))
	assert.True(t, s.Current().IsEmpty(), "mirror is untouched on failure")
}

func TestConcurrentStoresNeverInterleave(t *testing.T) {
	s := newTestStore(t)
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok := fmt.Sprintf("token-%02d", i)
			assert.Nil(t, s.Store(Record{MCPToken: String(tok), APIURL: String(fmt.Sprintf("url-%02d", i))}))
		}(i)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			data, err := os.ReadFile(s.Path())
			if err != nil {
				continue
			}
			var r Record
			if !assert.NoError(t, json.Unmarshal(data, &r)) {
				return
			}
			// token and url come from the same writer
			assert.Equal(t, Deref(r.MCPToken)[len("token-"):len("token-")+2], Deref(r.APIURL)[len("url-"):])
		}
	}()

	wg.Wait()
	close(stop)
	<-readerDone

	got, err := NewStore(s.Path()).Load()
	require.Nil(t, err)
	assert.Equal(t, s.Current(), got)
}

func TestMirrorMatchesFileAfterConcurrentLoadAndStore(t *testing.T) {
	s := newTestStore(t)
	require.Nil(t, s.Store(Record{MCPToken: String("token-initial")}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.Nil(t, s.Store(Record{MCPToken: String(fmt.Sprintf("token-%02d", i))}))
		}(i)
		go func() {
			defer wg.Done()
			_, err := s.Load()
			assert.Nil(t, err)
		}()
	}
	wg.Wait()

	// a Load that read before a Store must not replace the newer mirror
	onDisk, err := NewStore(s.Path()).Load()
	require.Nil(t, err)
	assert.Equal(t, onDisk, s.Current())
}

func TestRecordHelpers(t *testing.T) {
	r := Record{APIURL: String("a"), AutoStart: Bool(true)}
	c := r.Clone()
	*c.APIURL = "b"
	assert.Equal(t, "a", *r.APIURL)
	assert.True(t, r.AutoStartEnabled())
	assert.False(t, Record{AutoStart: Bool(false)}.AutoStartEnabled())
	assert.False(t, Record{}.AutoStartEnabled())
	assert.Equal(t, "", Deref(nil))
}
