// Package device implements the port/device protocol spec.md §6.4
// describes: a synchronous do_device(req, cmd) call returning one of
// PENDING/DONE/ERROR, dispatched by command code against a small request
// record. Concrete backends (filedevice.go, netdevice.go) each hold their
// own command table, the way the teacher's NetworkModule/WebSocketServer
// dispatch on connection id rather than a shared global map.
package device

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Command is one of the command codes spec.md §6.4 names; custom codes
// starting at CommandCustom are reserved for device-specific extensions.
type Command uint8

const (
	CmdInit Command = iota
	CmdQuit
	CmdOpen
	CmdClose
	CmdRead
	CmdWrite
	CmdPoll
	CmdConnect
	CmdQuery
	CmdModify
	CmdCreate
	CmdDelete
	CmdRename
	CmdLookup
)

// CommandCustom is the first code available to a device's own extensions
// (spec.md §6.4: "plus custom codes >= 32").
const CommandCustom Command = 32

// Status is a dispatcher's return value: a request is always satisfied
// synchronously (DONE/ERROR) or parked (PENDING) for a later POLL to
// pick up.
type Status uint8

const (
	StatusPending Status = iota
	StatusDone
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown-status"
	}
}

// Request is one device call's small record: the command, the data
// buffer it reads into or writes from, and a device-specific Target
// (file path, net address, ...) carried as an opaque string the device
// itself interprets (spec.md §6.4's "device-specific tail").
type Request struct {
	ID      string // github.com/google/uuid, correlation id for a later POLL
	Command Command
	Target  string
	Data    []byte
	Actual  int // bytes actually transferred, filled in by the device
	Err     error
}

// NewRequest stamps a fresh correlation id onto a request.
func NewRequest(cmd Command, target string, data []byte) *Request {
	return &Request{ID: uuid.NewString(), Command: cmd, Target: target, Data: data}
}

// Device is the abstract port backend spec.md §6.4 describes: one
// synchronous dispatch entry point plus Poll for requests a prior
// Dispatch parked.
type Device interface {
	Dispatch(req *Request) Status
	Poll(req *Request) Status
}

// Registry holds every open device instance an evaluator instance's host
// lib exposes, keyed by a host-chosen name ("file", "net", ...), the Go
// analogue of the teacher's WebSocketServer.Clients map, generalized from
// "one connection kind" to "any registered Device".
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]Device)}
}

func (r *Registry) Register(name string, d Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[name] = d
}

func (r *Registry) Get(name string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[name]
	return d, ok
}

// Dispatch routes req to the named device, the Go equivalent of spec.md
// §6.4's do_device(req, cmd) call.
func (r *Registry) Dispatch(name string, req *Request) (Status, error) {
	d, ok := r.Get(name)
	if !ok {
		return StatusError, fmt.Errorf("device: no such device %q", name)
	}
	return d.Dispatch(req), nil
}
