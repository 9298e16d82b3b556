package engine

// Host is the call platform boundary. It supplies argument bytes and accepts
// exactly one of Reply or Trap per call.
type Host interface {
	ArgData() []byte
	Reply(data []byte)
	Trap(message string)
}

// onceHost forwards at most one outcome to the wrapped host.
type onceHost struct {
	Host
	done bool
}

func (h *onceHost) Reply(data []byte) {
	if h.done {
		return
	}
	h.done = true
	h.Host.Reply(data)
}

func (h *onceHost) Trap(message string) {
	if h.done {
		return
	}
	h.done = true
	h.Host.Trap(message)
}
