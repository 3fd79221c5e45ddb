package main

import (
	"math"
	"time"
)

var started time.Time

// Uptime reports how long the program has been running in seconds.
func Uptime() float64 {
	return math.Floor(time.Since(started).Seconds())
}

func init() {
	started = time.Now()
}
