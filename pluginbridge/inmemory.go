package pluginbridge

import "sync"

// inMemoryPlugin is one end of an in-memory Plugin pair: requests sent on
// it land in the peer's recv queue and vice versa. Used by tests and the
// demo command in place of a real cborplugin/UNIX-socket transport.
type inMemoryPlugin struct {
	recv chan Request

	mu     sync.Mutex
	peer   *inMemoryPlugin
	closed bool
}

// NewInMemoryPair returns two Plugins, a and b, wired so that sending on
// one delivers to the other's Recv, simulating a lossless duplex link
// between a client and a server.
func NewInMemoryPair() (a, b Plugin) {
	pa := &inMemoryPlugin{recv: make(chan Request, 256)}
	pb := &inMemoryPlugin{recv: make(chan Request, 256)}
	pa.peer = pb
	pb.peer = pa
	return pa, pb
}

func (p *inMemoryPlugin) Send(req Request) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	peer := p.peer
	p.mu.Unlock()

	peer.mu.Lock()
	defer peer.mu.Unlock()
	if peer.closed {
		return ErrClosed
	}

	select {
	case peer.recv <- req:
		return nil
	default:
		return ErrClosed
	}
}

func (p *inMemoryPlugin) Recv() (Request, error) {
	req, ok := <-p.recv
	if !ok {
		return Request{}, ErrClosed
	}
	return req, nil
}

func (p *inMemoryPlugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.recv)
	return nil
}
