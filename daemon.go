package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"
)

const (
	defaultPerm  = os.FileMode(0640)
	markEnvName  = "_WAITQ_DAEMON_"
	markEnvValue = "1"
)

type command byte

const (
	commandQuit command = 1 + iota
	commandSleep
	commandWakeup
	commandStats
)

type commandFunc func(conn net.Conn)

type replyFunc func(conn net.Conn) error

type daemon struct {
	LogFile  string
	SockFile string
	WorkDir  string
	Env      []string
	Args     []string

	program  string
	logFile  *os.File
	listener net.Listener
	handlers map[command]commandFunc
}

func wasBorn() bool {
	return os.Getenv(markEnvName) == markEnvValue
}

// reborn starts the daemon copy of this program. In the parent it
// returns the child; in the child it opens the control socket.
func (d *daemon) reborn() (child *os.Process, err error) {
	if !wasBorn() {
		child, err = d.parent()
	} else {
		err = d.child()
	}
	return
}

func (d *daemon) release() {
	if d.listener == nil {
		return
	}

	d.listener.Close()
	if name, err := d.absPath(d.SockFile); err == nil {
		os.Remove(name)
	}
}

// send issues cmd with argv to the running daemon and hands the
// connection to reply, if any, to read the answer.
func (d *daemon) send(cmd command, reply replyFunc, argv ...[]byte) (err error) {
	var name string
	if name, err = d.absPath(d.SockFile); err != nil {
		return
	}

	var conn net.Conn
	if conn, err = net.Dial("unix", name); err != nil {
		err = errors.WithStack(err)
		return
	}
	defer conn.Close()

	if _, err = conn.Write([]byte{byte(cmd)}); err != nil {
		err = errors.WithStack(err)
		return
	}
	for _, v := range argv {
		if _, err = conn.Write(v); err != nil {
			err = errors.WithStack(err)
			return
		}
	}
	if reply != nil {
		err = reply(conn)
	}
	return
}

func (d *daemon) listen(cmd command, f commandFunc) {
	if d.handlers == nil {
		d.handlers = make(map[command]commandFunc)
	}
	d.handlers[cmd] = f
}

func (d *daemon) quit() (err error) {
	var process *os.Process
	if process, err = os.FindProcess(os.Getpid()); err != nil {
		err = errors.WithStack(err)
		return
	}

	if err = process.Signal(syscall.SIGTERM); err != nil {
		err = errors.WithStack(err)
	}

	return
}

func (d *daemon) wait(signals ...os.Signal) {
	ch := make(chan os.Signal, len(signals))
	signal.Notify(ch, signals...)

	<-ch
	signal.Stop(ch)
}

func (d *daemon) absPath(name string) (p string, err error) {
	if p, err = filepath.Abs(d.WorkDir); err != nil {
		err = errors.WithStack(err)
		return
	}
	p = path.Join(p, name)
	return
}

func (d *daemon) parent() (child *os.Process, err error) {
	if err = d.prepare(); err != nil {
		return
	}

	if err = d.openLogFile(); err != nil {
		return
	}
	defer d.logFile.Close()

	attr := &os.ProcAttr{
		Env: d.Env,
		Dir: d.WorkDir,
		Files: []*os.File{
			os.Stdin,  // fd = 0, stdin
			d.logFile, // fd = 1, stdout
			d.logFile, // fd = 2, stderr
		},
	}
	if child, err = os.StartProcess(d.program, d.Args, attr); err != nil {
		err = errors.WithStack(err)
		return
	}
	return
}

func (d *daemon) child() (err error) {
	var name string
	if name, err = d.absPath(d.SockFile); err != nil {
		return
	}
	os.Remove(name)
	if d.listener, err = net.Listen("unix", name); err != nil {
		err = errors.WithStack(err)
		return
	}

	go d.serve(d.listener)

	return
}

// serve runs each command on its own goroutine: a sleep holds its
// connection until the matching wakeup arrives on another one.
func (d *daemon) serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			printLog(errors.WithStack(err))
			d.quit()
			return
		}
		go d.handleCommand(conn)
	}
}

func (d *daemon) handleCommand(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 1)
	if _, err := io.ReadFull(conn, buf); err != nil {
		printLog(errors.WithStack(err))
		return
	}

	if f, ok := d.handlers[command(buf[0])]; ok {
		f(conn)
	}
}

func (d *daemon) prepare() (err error) {
	if d.program, err = os.Executable(); err != nil {
		err = errors.WithStack(err)
		return
	}

	if len(d.Env) == 0 {
		d.Env = os.Environ()
	}
	mark := fmt.Sprintf("%s=%s", markEnvName, markEnvValue)
	d.Env = append(d.Env, mark)

	args := d.Args
	d.Args = os.Args
	d.Args = append(d.Args, args...)
	return
}

func (d *daemon) openLogFile() (err error) {
	var name string
	if name, err = d.absPath(d.LogFile); err != nil {
		return
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if d.logFile, err = os.OpenFile(name, flag, defaultPerm); err != nil {
		err = errors.WithStack(err)
		return
	}
	return
}
