package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/HimbeerserverDE/relnet"
)

// An Entry is one chat message.
type Entry struct {
	Time time.Time
	Peer relnet.PeerID
	Name string
	Text string
}

// A History stores chat messages in the database from its own
// goroutine so the tick goroutine never waits for disk I/O.
type History struct {
	db      *sql.DB
	entries chan Entry
	done    chan struct{}
}

// NewHistory starts the writer goroutine. Up to backlog entries
// can be waiting to be written before Add drops them.
func NewHistory(db *sql.DB, backlog int) *History {
	h := &History{
		db:      db,
		entries: make(chan Entry, backlog),
		done:    make(chan struct{}),
	}
	go h.run()

	return h
}

func (h *History) run() {
	defer close(h.done)

	for e := range h.entries {
		if _, err := h.db.Exec(`INSERT INTO history (
			time,
			peer,
			name,
			text
		) VALUES (
			?,
			?,
			?,
			?
		);`, e.Time.Unix(), e.Peer, e.Name, e.Text); err != nil {
			log.Print(err)
		}
	}
}

// Add queues e for writing. It never blocks.
func (h *History) Add(e Entry) {
	select {
	case h.entries <- e:
	default:
		log.Print("chat history backlog full, dropping message from ", e.Name)
	}
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) ([]Entry, error) {
	rows, err := h.db.Query(`SELECT time, peer, name, text FROM history ORDER BY id DESC LIMIT ?;`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var r []Entry
	for rows.Next() {
		var e Entry
		var unix int64
		if err := rows.Scan(&unix, &e.Peer, &e.Name, &e.Text); err != nil {
			return nil, err
		}
		e.Time = time.Unix(unix, 0)

		r = append(r, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return r, nil
}

// Close writes every queued entry and stops the writer.
// Add must not be called afterwards.
func (h *History) Close() {
	close(h.entries)
	<-h.done
}
