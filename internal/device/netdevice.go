package device

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// NetDevice implements Device over gorilla/websocket connections:
// OPEN/CONNECT/READ/WRITE/CLOSE through Dispatch, with a genuine PENDING
// state: a READ with no buffered frame yet returns PENDING. The device
// keeps no queue of pending requests; inbound frames queue per
// connection, and the Poll method (not Dispatch, which rejects CmdPoll)
// re-runs the READ for a request its caller still holds. Grounded on the
// teacher's WebSocketConn (internal/network/websocket.go): a background
// reader goroutine feeding a buffered channel, generalized from "deliver
// strings to a Go channel a script polls with a timeout" to "deliver
// frames into a per-connection queue that READ and Poll drain."
type NetDevice struct {
	mu    sync.Mutex
	conns map[string]*netConn
}

type netConn struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	closed  bool
	pending [][]byte // frames read but not yet claimed by a READ/POLL
}

func NewNetDevice() *NetDevice {
	return &NetDevice{conns: make(map[string]*netConn)}
}

func (d *NetDevice) Dispatch(req *Request) Status {
	switch req.Command {
	case CmdConnect, CmdOpen:
		return d.connect(req)
	case CmdRead:
		return d.read(req)
	case CmdWrite:
		return d.write(req)
	case CmdClose:
		return d.close(req)
	default:
		req.Err = errors.New("netdevice: unsupported command")
		return StatusError
	}
}

// Poll re-attempts a previously-PENDING read.
func (d *NetDevice) Poll(req *Request) Status {
	if req.Command != CmdRead {
		req.Err = errors.New("netdevice: poll is only meaningful for a pending read")
		return StatusError
	}
	return d.read(req)
}

func (d *NetDevice) connect(req *Request) Status {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.Dial(req.Target, nil)
	if err != nil {
		req.Err = err
		return StatusError
	}
	nc := &netConn{conn: conn}
	d.mu.Lock()
	d.conns[req.ID] = nc
	d.mu.Unlock()
	go nc.pump()
	return StatusDone
}

// pump is the background reader: every inbound frame is appended to
// pending until a READ/POLL claims it, mirroring the teacher's
// readMessages goroutine feeding messagesCh.
func (nc *netConn) pump() {
	for {
		_, data, err := nc.conn.ReadMessage()
		if err != nil {
			nc.mu.Lock()
			nc.closed = true
			nc.mu.Unlock()
			return
		}
		nc.mu.Lock()
		nc.pending = append(nc.pending, data)
		nc.mu.Unlock()
	}
}

func (d *NetDevice) read(req *Request) Status {
	d.mu.Lock()
	nc, ok := d.conns[req.ID]
	d.mu.Unlock()
	if !ok {
		req.Err = errors.New("netdevice: read against an unopened connection")
		return StatusError
	}
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if len(nc.pending) == 0 {
		if nc.closed {
			req.Err = errors.New("netdevice: connection closed with no data pending")
			return StatusError
		}
		return StatusPending
	}
	frame := nc.pending[0]
	nc.pending = nc.pending[1:]
	n := copy(req.Data, frame)
	req.Actual = n
	return StatusDone
}

func (d *NetDevice) write(req *Request) Status {
	d.mu.Lock()
	nc, ok := d.conns[req.ID]
	d.mu.Unlock()
	if !ok {
		req.Err = errors.New("netdevice: write against an unopened connection")
		return StatusError
	}
	nc.mu.Lock()
	defer nc.mu.Unlock()
	if nc.closed {
		req.Err = errors.New("netdevice: connection is closed")
		return StatusError
	}
	if err := nc.conn.WriteMessage(websocket.BinaryMessage, req.Data); err != nil {
		req.Err = err
		return StatusError
	}
	req.Actual = len(req.Data)
	return StatusDone
}

func (d *NetDevice) close(req *Request) Status {
	d.mu.Lock()
	nc, ok := d.conns[req.ID]
	delete(d.conns, req.ID)
	d.mu.Unlock()
	if !ok {
		req.Err = errors.New("netdevice: close against an unopened connection")
		return StatusError
	}
	nc.mu.Lock()
	nc.closed = true
	nc.mu.Unlock()
	nc.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return StatusDone
}
