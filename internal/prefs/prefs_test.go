package prefs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/sensor-node/internal/logging"
)

type restored struct {
	Mode  string
	Level int
}

func TestSaveIsBufferedUntilFlush(t *testing.T) {
	mem := NewMemory()
	s := New(mem)

	require.NoError(t, s.Save("switch/pump", true))
	assert.Equal(t, []string{"switch/pump"}, s.Pending())
	assert.Equal(t, 0, mem.Puts())

	var got bool
	ok, err := s.Load("switch/pump", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got, "cache serves unflushed values")

	n, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, s.Pending())
	assert.Equal(t, 1, mem.Puts())
}

func TestUnchangedSaveIsNotRewritten(t *testing.T) {
	mem := NewMemory()
	s := New(mem)

	require.NoError(t, s.Save("k", 3))
	_, err := s.Flush(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Save("k", 3))
	assert.Empty(t, s.Pending())
}

func TestLoadFallsThroughToBackend(t *testing.T) {
	mem := NewMemory()
	writer := New(mem)
	require.NoError(t, writer.Save("node/id", restored{Mode: "eco", Level: 2}))
	_, err := writer.Flush(context.Background())
	require.NoError(t, err)

	reader := New(mem)
	var got restored
	ok, err := reader.Load("node/id", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, restored{Mode: "eco", Level: 2}, got)

	ok, err = reader.Load("missing", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadTypeMismatch(t *testing.T) {
	s := New(NewMemory())
	require.NoError(t, s.Save("k", "text"))
	var n int
	_, err := s.Load("k", &n)
	assert.Error(t, err)
}

func TestFailedFlushKeepsKeysPending(t *testing.T) {
	mem := NewMemory()
	mem.PutError = errors.New("read-only file system")
	s := New(mem)

	require.NoError(t, s.Save("a", 1))
	_, err := s.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, s.Pending())

	mem.PutError = nil
	n, err := s.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.db")

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	s := New(db)
	require.NoError(t, s.Save("switch/pump", true))
	require.NoError(t, s.Save("select/log_level", "debug"))
	_, err = s.Flush(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Save("switch/pump", false))
	_, err = s.Flush(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer db.Close()
	s = New(db)

	var on bool
	ok, err := s.Load("switch/pump", &on)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, on)

	var level string
	_, err = s.Load("select/log_level", &level)
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
}

func TestFlusherComponent(t *testing.T) {
	mem := NewMemory()
	s := New(mem)
	f := NewFlusher(s, time.Minute, "memory", logging.Discard())

	require.NoError(t, s.Save("k", 1))
	mem.PutError = errors.New("disk full")
	f.Update()
	assert.True(t, f.Status().HasWarning())

	mem.PutError = nil
	f.OnShutdown()
	assert.False(t, f.Status().HasWarning())
	assert.Empty(t, s.Pending())
	assert.Equal(t, time.Minute, f.UpdateInterval())
}
