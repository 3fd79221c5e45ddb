/*
Relnetd runs one participant of a relnet game session with the chat
and position executors, a console and a ban list.
*/
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/HimbeerserverDE/relnet"
	"github.com/HimbeerserverDE/relnet/chat"
	"github.com/HimbeerserverDE/relnet/position"
)

func main() {
	path := flag.String("config", relnet.DefaultConfigPath, "path of the config file")
	flag.Parse()

	cfg, err := relnet.LoadConfig(*path)
	if err != nil {
		log.Fatal(err)
	}

	l, err := newLogger(cfg.LogPath)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()
	log.SetOutput(l)

	db, err := OpenSQLite3(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	bans, err := LoadBanList(db)
	if err != nil {
		log.Fatal(err)
	}

	history := NewHistory(db, 256)
	defer history.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := relnet.NewMetrics(reg)
	if cfg.MetricsAddress != "" {
		srv := serveMetrics(cfg.MetricsAddress, reg)
		defer srv.Close()
	}

	conn, err := relnet.Listen(cfg.Host)
	if err != nil {
		log.Fatal(err)
	}

	log.Print("Listening on " + cfg.Host)

	s := relnet.NewSession(cfg, conn, metrics)

	c := chat.New(func(from relnet.PeerID, name, text string) {
		log.Printf("<%s> %s", name, text)
		history.Add(Entry{Time: time.Now(), Peer: from, Name: name, Text: text})
	})
	c.Validate = func(p *relnet.Peer, text string) bool {
		return !bans.IsBanned(p)
	}

	t := position.New()

	for _, e := range []relnet.Executor{c, t} {
		if _, err := s.Register(e); err != nil {
			log.Fatal(err)
		}
	}

	for _, pc := range cfg.Peers {
		addr, err := net.ResolveUDPAddr("udp", pc.Address)
		if err != nil {
			log.Fatal(err)
		}

		p := &relnet.Peer{ID: pc.ID, Name: pc.Name, Addr: addr}
		if bans.IsBanned(p) {
			log.Printf("peer %d (%s) is banned, skipping", p.ID, p.Name)
			continue
		}

		s.AddPeer(p)
	}
	s.ConfirmLocal(cfg.PeerID)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	d := &daemon{
		session:  s,
		chat:     c,
		position: t,
		bans:     bans,
		history:  history,
		out:      log.Default(),
		cancel:   stop,
	}
	go runConsole(os.Stdin, d)

	if err := relnet.Run(ctx, s, conn, clock.New()); err != nil {
		log.Print(err)
		return
	}

	log.Print("Caught SIGINT or SIGTERM or quit, shutting down")
}
