package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/friends-server/config"
	"github.com/stevemurr/friends-server/store"
)

func TestRunReturnsStoreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"friends":[{"id":"x"}]}`), 0o644))

	cfg := config.Default()
	cfg.DataFile = path

	err := run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open friends collection")
}

func TestRunClosesStoreWhenListenFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = ln.Addr().(*net.TCPAddr).Port
	cfg.StoreBackend = "sqlite"
	cfg.DataFile = filepath.Join(t.TempDir(), "data.db")

	err = run(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server error")

	// The initial sync reached disk and the database can be reopened.
	db, err := store.New("sqlite", cfg.DataFile)
	require.NoError(t, err)
	defer db.Close()
	raw, ok := db.Get("friends")
	require.True(t, ok)
	assert.JSONEq(t, `[]`, string(raw))
}
