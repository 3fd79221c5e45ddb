package main

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"

	"github.com/HimbeerserverDE/relnet"
)

var ErrAlreadyBanned = errors.New("already banned")

// A Ban matches peers by IP address or by name.
// Exactly one of the fields is set.
type Ban struct {
	Addr string
	Name string
}

func (b Ban) String() string {
	if b.Addr != "" {
		return b.Addr
	}
	return b.Name
}

// A BanList is the ban table of the database with an in-memory copy
// for lookups from the tick goroutine.
type BanList struct {
	db *sql.DB

	mu    sync.RWMutex
	addrs map[string]bool
	names map[string]bool
}

// LoadBanList reads the ban table of db.
func LoadBanList(db *sql.DB) (*BanList, error) {
	l := &BanList{
		db:    db,
		addrs: make(map[string]bool),
		names: make(map[string]bool),
	}

	rows, err := db.Query(`SELECT addr, name FROM ban;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b Ban
		if err := rows.Scan(&b.Addr, &b.Name); err != nil {
			return nil, err
		}

		l.add(b)
	}

	return l, rows.Err()
}

func (l *BanList) add(b Ban) {
	if b.Addr != "" {
		l.addrs[b.Addr] = true
	} else {
		l.names[b.Name] = true
	}
}

// parseBan interprets target as an IP address or a name.
func parseBan(target string) Ban {
	if ip := net.ParseIP(target); ip != nil {
		return Ban{Addr: ip.String()}
	}
	return Ban{Name: target}
}

// Ban adds an IP address or a name to the list.
func (l *BanList) Ban(target string) error {
	b := parseBan(target)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.addrs[b.Addr] || l.names[b.Name] {
		return fmt.Errorf("%s: %w", b, ErrAlreadyBanned)
	}

	if _, err := l.db.Exec(`INSERT INTO ban (
		addr,
		name
	) VALUES (
		?,
		?
	);`, b.Addr, b.Name); err != nil {
		return err
	}

	l.add(b)
	return nil
}

// Unban removes an IP address or a name from the list.
func (l *BanList) Unban(target string) error {
	b := parseBan(target)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.db.Exec(`DELETE FROM ban WHERE addr = ? AND name = ?;`, b.Addr, b.Name); err != nil {
		return err
	}

	delete(l.addrs, b.Addr)
	delete(l.names, b.Name)
	return nil
}

// List returns every ban, addresses first.
func (l *BanList) List() []Ban {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var r []Ban
	for addr := range l.addrs {
		r = append(r, Ban{Addr: addr})
	}
	for name := range l.names {
		r = append(r, Ban{Name: name})
	}

	sort.Slice(r, func(i, j int) bool {
		if (r[i].Addr == "") != (r[j].Addr == "") {
			return r[i].Addr != ""
		}
		return r[i].String() < r[j].String()
	})
	return r
}

// IsBanned reports whether p is banned by name or IP address.
func (l *BanList) IsBanned(p *relnet.Peer) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.names[p.Name] {
		return true
	}

	return l.addrs[hostIP(p.Addr)]
}

func hostIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP.String()
	case nil:
		return ""
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	return host
}
