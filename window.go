package relnet

// WindowSize is the number of distinct 8-bit sequence IDs.
const WindowSize = 256

// A Window remembers which 8-bit sequence IDs have been accepted
// on one logical channel of one peer.
//
// Accepting ID k retires k+128 (mod 256), so at most 128 IDs are
// marked at any time. An ID may therefore be reused once 128 other
// IDs have been accepted after it, provided nothing arrives more
// than 128 positions late.
type Window struct {
	seen [WindowSize]bool
}

// MarkSeen reports whether id was already marked.
// If it wasn't, it is marked and the ID half a cycle behind it
// is retired.
func (w *Window) MarkSeen(id uint8) bool {
	if w.seen[id] {
		return true
	}

	w.seen[id] = true
	w.seen[id+WindowSize/2] = false

	return false
}

// Seen reports whether id is marked without changing the Window.
func (w *Window) Seen(id uint8) bool { return w.seen[id] }

// Reset clears every slot.
func (w *Window) Reset() {
	w.seen = [WindowSize]bool{}
}

// A WindowSet holds one Window per PeerID. Its storage doubles
// whenever a higher PeerID is seen and never shrinks.
type WindowSet struct {
	windows []Window
}

// Get returns the Window of peer, growing the set if needed.
// The pointer is only valid until the next call to Get.
func (ws *WindowSet) Get(peer PeerID) *Window {
	ws.grow(int(peer) + 1)
	return &ws.windows[peer]
}

// MarkSeen is short for ws.Get(peer).MarkSeen(id).
func (ws *WindowSet) MarkSeen(peer PeerID, id uint8) bool {
	return ws.Get(peer).MarkSeen(id)
}

// Reset clears the Window of peer, e.g. when it (re)joins.
func (ws *WindowSet) Reset(peer PeerID) {
	ws.Get(peer).Reset()
}

// Len returns the number of allocated Windows.
func (ws *WindowSet) Len() int { return len(ws.windows) }

func (ws *WindowSet) grow(n int) {
	if n <= len(ws.windows) {
		return
	}

	size := len(ws.windows)
	if size == 0 {
		size = 1
	}
	for size < n {
		size *= 2
	}

	windows := make([]Window, size)
	copy(windows, ws.windows)
	ws.windows = windows
}
