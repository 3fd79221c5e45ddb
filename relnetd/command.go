package main

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/HimbeerserverDE/relnet"
	"github.com/HimbeerserverDE/relnet/chat"
	"github.com/HimbeerserverDE/relnet/position"
)

// A daemon bundles everything console commands work on.
type daemon struct {
	session  *relnet.Session
	chat     *chat.Chat
	position *position.Tracker
	bans     *BanList
	history  *History

	out    *log.Logger
	cancel context.CancelFunc
}

type command struct {
	help string
	fn   func(d *daemon, param string)
}

var commands map[string]command

// RegisterCommand makes fn available to the console as name.
func RegisterCommand(name, help string, fn func(d *daemon, param string)) {
	commands[name] = command{help: help, fn: fn}
}

// exec runs one console line.
func (d *daemon) exec(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	name, param, _ := strings.Cut(line, " ")
	cmd, ok := commands[name]
	if !ok {
		d.out.Print("Unknown command " + name + ".")
		return
	}

	cmd.fn(d, strings.TrimSpace(param))
}

// post runs fn on the tick goroutine.
func (d *daemon) post(fn func()) {
	if err := d.session.Post(fn); err != nil {
		d.out.Print("Session busy: ", err)
	}
}

// kick removes every active peer the ban matches.
func (d *daemon) kick(b Ban) {
	d.post(func() {
		for _, p := range d.session.Peers().Active() {
			if (b.Name != "" && p.Name == b.Name) || (b.Addr != "" && hostIP(p.Addr) == b.Addr) {
				d.session.RemovePeer(p.ID)
			}
		}
	})
}

func init() {
	commands = make(map[string]command)

	RegisterCommand("help",
		"Shows the help for a command or all commands. Usage: help [command]",
		func(d *daemon, param string) {
			if param != "" {
				if cmd, ok := commands[param]; ok {
					d.out.Print(param + ": " + cmd.help)
				} else {
					d.out.Print("No help available for " + param + ".")
				}
				return
			}

			var names []string
			for name := range commands {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				d.out.Print(name + ": " + commands[name].help)
			}
		})

	RegisterCommand("say",
		"Sends a chat message. Usage: say <message>",
		func(d *daemon, param string) {
			if param == "" {
				d.out.Print("Usage: say <message>")
				return
			}

			d.post(func() {
				if err := d.chat.Say(param); err != nil {
					d.out.Print("Could not send message: ", err)
				}
			})
		})

	RegisterCommand("peers",
		"Lists the active peers. Usage: peers",
		func(d *daemon, param string) {
			d.post(func() {
				peers := d.session.Peers().Active()
				d.out.Printf("%d active peers", len(peers))

				for _, p := range peers {
					line := strconv.Itoa(int(p.ID)) + " | " + p.Name + " | " + p.Addr.String()
					if pos, ok := d.position.Get(p.ID); ok {
						line += " | " + strconv.FormatFloat(float64(pos.X), 'f', 1, 32) +
							" " + strconv.FormatFloat(float64(pos.Y), 'f', 1, 32) +
							" " + strconv.FormatFloat(float64(pos.Z), 'f', 1, 32)
					}

					d.out.Print(line)
				}
			})
		})

	RegisterCommand("ban",
		"Bans an IP address or a peer name and removes matching peers. Usage: ban <name | IP address>",
		func(d *daemon, param string) {
			if param == "" {
				d.out.Print("Usage: ban <name | IP address>")
				return
			}

			if err := d.bans.Ban(param); err != nil {
				d.out.Print(err)
				return
			}

			d.kick(parseBan(param))
			d.out.Print("Banned " + param)
		})

	RegisterCommand("unban",
		"Unbans an IP address or a peer name. Usage: unban <name | IP address>",
		func(d *daemon, param string) {
			if param == "" {
				d.out.Print("Usage: unban <name | IP address>")
				return
			}

			if err := d.bans.Unban(param); err != nil {
				d.out.Print("An internal error occured while attempting to unban: ", err)
				return
			}

			d.out.Print("Unbanned " + param)
		})

	RegisterCommand("bans",
		"Prints the list of banned IP addresses and names. Usage: bans",
		func(d *daemon, param string) {
			for _, b := range d.bans.List() {
				d.out.Print(b)
			}
		})

	RegisterCommand("history",
		"Prints the newest chat messages. Usage: history [count]",
		func(d *daemon, param string) {
			n := 10
			if param != "" {
				var err error
				if n, err = strconv.Atoi(param); err != nil || n <= 0 {
					d.out.Print("Usage: history [count]")
					return
				}
			}

			entries, err := d.history.Recent(n)
			if err != nil {
				d.out.Print("An internal error occured while attempting to read the chat history: ", err)
				return
			}

			for _, e := range entries {
				d.out.Printf("%s <%s> %s", e.Time.Format("15:04:05"), e.Name, e.Text)
			}
		})

	RegisterCommand("uptime",
		"Prints the uptime in seconds. Usage: uptime",
		func(d *daemon, param string) {
			d.out.Printf("Uptime: %.0fs", Uptime())
		})

	RegisterCommand("quit",
		"Shuts down. Usage: quit",
		func(d *daemon, param string) {
			d.out.Print("Ending")
			d.cancel()
		})
}
