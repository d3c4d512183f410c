package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"net"

	"github.com/pkg/errors"

	"github.com/fanpei91/waitq/synch"
)

// Reply status byte.
const (
	statusOK byte = iota
	statusTimedOut
	statusInterrupted
	statusRestart
	statusNoSuchWaiter
	statusError = 0xff
)

var errServer = errors.New("server error")

func statusOf(err error) byte {
	switch errors.Cause(err) {
	case nil:
		return statusOK
	case synch.ErrTimedOut, synch.ErrWouldBlock:
		return statusTimedOut
	case synch.ErrInterrupted:
		return statusInterrupted
	case synch.ErrRestart:
		return statusRestart
	case synch.ErrNoSuchWaiter:
		return statusNoSuchWaiter
	}
	return statusError
}

func errorOf(status byte) error {
	switch status {
	case statusOK:
		return nil
	case statusTimedOut:
		return synch.ErrTimedOut
	case statusInterrupted:
		return synch.ErrInterrupted
	case statusRestart:
		return synch.ErrRestart
	case statusNoSuchWaiter:
		return synch.ErrNoSuchWaiter
	}
	return errServer
}

// server exposes the named waits of one process to socket clients.
type server struct {
	sched *synch.Scheduler
	proc  *synch.Process
}

func newServer(conf *config) *server {
	sched := synch.New(conf.scheduler())
	return &server{
		sched: sched,
		proc:  sched.NewProcess(),
	}
}

func (r *server) run(ctx context.Context) {
	if err := r.sched.Run(ctx); err != nil && errors.Cause(err) != context.Canceled {
		printLog(errors.WithStack(err))
	}
}

/* sleep request
   +----+---------+
   | ID | TIMEOUT |
   +----+---------+
   | 8  |    4    |
   +----+---------+
   reply: 1 status byte
*/
func (r *server) handleSleep(conn net.Conn) {
	buf := make([]byte, 12)
	if _, err := io.ReadFull(conn, buf); err != nil {
		printLog(errors.WithStack(err))
		return
	}
	id := int64(binary.BigEndian.Uint64(buf[:8]))
	timeout := int32(binary.BigEndian.Uint32(buf[8:]))

	t := r.sched.NewThread(r.proc)
	defer r.sched.Exit(t)

	// A client that hangs up interrupts its own sleep.
	done := make(chan struct{})
	defer close(done)
	go func() {
		one := make([]byte, 1)
		conn.Read(one)
		select {
		case <-done:
		default:
			r.sched.Kill(t, synch.SIGINT)
		}
	}()

	err := r.sched.ThreadSleep(t, id, timeout, nil)
	r.sched.TakeSignal(t)
	if _, werr := conn.Write([]byte{statusOf(err)}); werr != nil {
		printLog(errors.WithStack(werr))
	}
}

/* wakeup request
   +----+
   | ID |
   +----+
   | 8  |
   +----+
   reply: 1 status byte
*/
func (r *server) handleWakeup(conn net.Conn) {
	buf := make([]byte, 8)
	if _, err := io.ReadFull(conn, buf); err != nil {
		printLog(errors.WithStack(err))
		return
	}
	id := int64(binary.BigEndian.Uint64(buf))

	err := r.sched.ThreadWakeup(r.proc, id)
	if _, werr := conn.Write([]byte{statusOf(err)}); werr != nil {
		printLog(errors.WithStack(werr))
	}
}

// handleStats replies with a 4-byte length and the JSON counters.
func (r *server) handleStats(conn net.Conn) {
	body, err := json.Marshal(r.sched.Stats())
	if err != nil {
		printLog(errors.WithStack(err))
		return
	}
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)
	if _, err = conn.Write(buf); err != nil {
		printLog(errors.WithStack(err))
	}
}

func sleepArgs(id int64, timeoutMS int32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint64(buf, uint64(id))
	binary.BigEndian.PutUint32(buf[8:], uint32(timeoutMS))
	return buf
}

func wakeupArgs(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func readStatus(conn net.Conn) error {
	buf := make([]byte, 1)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return errors.WithStack(err)
	}
	return errorOf(buf[0])
}

func readStats(conn net.Conn) (st synch.Stats, err error) {
	head := make([]byte, 4)
	if _, err = io.ReadFull(conn, head); err != nil {
		err = errors.WithStack(err)
		return
	}
	body := make([]byte, binary.BigEndian.Uint32(head))
	if _, err = io.ReadFull(conn, body); err != nil {
		err = errors.WithStack(err)
		return
	}
	if err = json.Unmarshal(body, &st); err != nil {
		err = errors.WithStack(err)
	}
	return
}
