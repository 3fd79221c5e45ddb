package main

import (
	"bufio"
	"io"
	"log"
)

// runConsole executes every line read from r as a command.
func runConsole(r io.Reader, d *daemon) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		d.exec(sc.Text())
	}

	if err := sc.Err(); err != nil {
		log.Print(err)
	}
}
