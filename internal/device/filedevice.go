package device

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileDevice implements Device against the local filesystem:
// OPEN/READ/WRITE/CLOSE/QUERY/DELETE/RENAME, synchronous throughout, a
// local file never blocks long enough to justify PENDING (spec.md §6.4's
// "pending requests park on per-device queues" is exercised by
// NetDevice instead). Grounded on the teacher's FileSystemModule's
// map-of-open-handles-behind-a-mutex shape (internal/filesystem/
// filesystem.go's Baselines/Watchers maps), generalized from "security
// baselines" to "open OS file handles."
type FileDevice struct {
	mu      sync.Mutex
	handles map[string]*os.File
}

func NewFileDevice() *FileDevice {
	return &FileDevice{handles: make(map[string]*os.File)}
}

// Dispatch implements Device. Target is a file path for OPEN/QUERY/
// DELETE/RENAME. READ/WRITE/CLOSE ignore Target and look up the file the
// OPEN stored under the same req.ID.
func (d *FileDevice) Dispatch(req *Request) Status {
	switch req.Command {
	case CmdOpen:
		return d.open(req)
	case CmdRead:
		return d.read(req)
	case CmdWrite:
		return d.write(req)
	case CmdClose:
		return d.close(req)
	case CmdQuery:
		return d.query(req)
	case CmdDelete:
		return d.delete(req)
	case CmdRename:
		return d.rename(req)
	default:
		req.Err = fmt.Errorf("filedevice: unsupported command %v", req.Command)
		return StatusError
	}
}

// Poll always reports DONE: FileDevice never parks a request.
func (d *FileDevice) Poll(req *Request) Status { return StatusDone }

func (d *FileDevice) open(req *Request) Status {
	flag := os.O_RDONLY
	if len(req.Data) > 0 && req.Data[0] == 'w' {
		flag = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(req.Target, flag, 0644)
	if err != nil {
		req.Err = err
		return StatusError
	}
	d.mu.Lock()
	d.handles[req.ID] = f
	d.mu.Unlock()
	return StatusDone
}

func (d *FileDevice) handle(id string) (*os.File, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.handles[id]
	return f, ok
}

func (d *FileDevice) read(req *Request) Status {
	f, ok := d.handle(req.ID)
	if !ok {
		req.Err = errors.New("filedevice: read against an unopened request")
		return StatusError
	}
	n, err := f.Read(req.Data)
	req.Actual = n
	if err != nil && err != io.EOF {
		req.Err = err
		return StatusError
	}
	return StatusDone
}

func (d *FileDevice) write(req *Request) Status {
	f, ok := d.handle(req.ID)
	if !ok {
		req.Err = errors.New("filedevice: write against an unopened request")
		return StatusError
	}
	n, err := f.Write(req.Data)
	req.Actual = n
	if err != nil {
		req.Err = err
		return StatusError
	}
	return StatusDone
}

func (d *FileDevice) close(req *Request) Status {
	d.mu.Lock()
	f, ok := d.handles[req.ID]
	delete(d.handles, req.ID)
	d.mu.Unlock()
	if !ok {
		req.Err = errors.New("filedevice: close against an unopened request")
		return StatusError
	}
	if err := f.Close(); err != nil {
		req.Err = err
		return StatusError
	}
	return StatusDone
}

func (d *FileDevice) query(req *Request) Status {
	info, err := os.Stat(req.Target)
	if err != nil {
		req.Err = err
		return StatusError
	}
	req.Actual = int(info.Size())
	return StatusDone
}

func (d *FileDevice) delete(req *Request) Status {
	if err := os.Remove(req.Target); err != nil {
		req.Err = err
		return StatusError
	}
	return StatusDone
}

func (d *FileDevice) rename(req *Request) Status {
	newName := string(req.Data)
	if newName == "" {
		req.Err = errors.New("filedevice: rename requires a destination in req.Data")
		return StatusError
	}
	if err := os.Rename(req.Target, newName); err != nil {
		req.Err = err
		return StatusError
	}
	return StatusDone
}
