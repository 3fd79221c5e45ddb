package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	db := openTestDB(t)
	h := NewHistory(db, 16)

	now := time.Unix(1700000000, 0)
	for i, text := range []string{"one", "two", "three"} {
		h.Add(Entry{Time: now.Add(time.Duration(i) * time.Second), Peer: 1, Name: "alice", Text: text})
	}
	h.Close()

	entries, err := h.Recent(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "two", entries[0].Text)
	assert.Equal(t, "three", entries[1].Text)
	assert.Equal(t, now.Add(2*time.Second), entries[1].Time)
	assert.Equal(t, "alice", entries[1].Name)
}
