package main

import (
	"database/sql"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimbeerserverDE/relnet"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenSQLite3(filepath.Join(t.TempDir(), "storage", "relnet.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func TestBanList(t *testing.T) {
	db := openTestDB(t)

	l, err := LoadBanList(db)
	require.NoError(t, err)
	assert.Empty(t, l.List())

	require.NoError(t, l.Ban("10.0.0.7"))
	require.NoError(t, l.Ban("mallory"))
	assert.ErrorIs(t, l.Ban("mallory"), ErrAlreadyBanned)

	assert.Equal(t, []Ban{{Addr: "10.0.0.7"}, {Name: "mallory"}}, l.List())

	byAddr := &relnet.Peer{Name: "eve", Addr: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: 1}}
	byName := &relnet.Peer{Name: "mallory", Addr: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 8), Port: 1}}
	clean := &relnet.Peer{Name: "alice", Addr: &net.UDPAddr{IP: net.IPv4(10, 0, 0, 9), Port: 1}}
	assert.True(t, l.IsBanned(byAddr))
	assert.True(t, l.IsBanned(byName))
	assert.False(t, l.IsBanned(clean))

	// The table survives a reload.
	l, err = LoadBanList(db)
	require.NoError(t, err)
	assert.Len(t, l.List(), 2)

	require.NoError(t, l.Unban("mallory"))
	assert.False(t, l.IsBanned(byName))

	l, err = LoadBanList(db)
	require.NoError(t, err)
	assert.Equal(t, []Ban{{Addr: "10.0.0.7"}}, l.List())
}

func TestHostIP(t *testing.T) {
	assert.Equal(t, "", hostIP(nil))
	assert.Equal(t, "::1", hostIP(&net.UDPAddr{IP: net.IPv6loopback, Port: 5}))
	assert.Equal(t, "127.0.0.1", hostIP(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5}))
}
