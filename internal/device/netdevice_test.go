package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades every request and echoes back whatever frame it
// receives, just enough of a peer for NetDevice's connect/write/read
// path to exercise against.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func TestNetDeviceWriteReadEchoesThroughPending(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	d := NewNetDevice()
	conn := NewRequest(CmdConnect, url, nil)
	if st := d.Dispatch(conn); st != StatusDone {
		t.Fatalf("connect = %v, err=%v", st, conn.Err)
	}
	defer d.Dispatch(&Request{ID: conn.ID, Command: CmdClose})

	write := &Request{ID: conn.ID, Command: CmdWrite, Data: []byte("ping")}
	if st := d.Dispatch(write); st != StatusDone {
		t.Fatalf("write = %v, err=%v", st, write.Err)
	}

	deadline := time.Now().Add(2 * time.Second)
	buf := make([]byte, 64)
	for {
		read := &Request{ID: conn.ID, Command: CmdRead, Data: buf}
		st := d.Dispatch(read)
		if st == StatusDone {
			if got := string(buf[:read.Actual]); got != "ping" {
				t.Fatalf("echoed back %q, want %q", got, "ping")
			}
			return
		}
		if st == StatusError {
			t.Fatalf("read errored: %v", read.Err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for the echoed frame")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNetDeviceReadAgainstUnopenedConnectionErrors(t *testing.T) {
	d := NewNetDevice()
	req := &Request{ID: "never-connected", Command: CmdRead, Data: make([]byte, 4)}
	if st := d.Dispatch(req); st != StatusError {
		t.Fatalf("read against unopened connection = %v, want error", st)
	}
}
