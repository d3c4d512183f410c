package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fanpei91/waitq/synch"
)

var ctxServer = &daemon{
	LogFile:  "server.log",
	SockFile: "server.sock",
	WorkDir:  workDir(),
}

func parseID(arg string) (id int64, err error) {
	if id, err = strconv.ParseInt(arg, 10, 64); err != nil {
		err = errors.WithStack(err)
	}
	return
}

func cmdServer(conf *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Manage wait server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(cmdServerStart(conf))
	cmd.AddCommand(cmdServerStop(conf))
	return cmd
}

func cmdServerStart(conf *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "start",
		Short:         "Start wait server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer ctxServer.release()

		message := "could not run server"
		var child *os.Process
		if child, err = ctxServer.reborn(); err != nil {
			err = errors.Wrap(err, message)
			return
		}
		if child != nil {
			return
		}

		srv := newServer(conf)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go srv.run(ctx)

		ctxServer.listen(commandSleep, srv.handleSleep)
		ctxServer.listen(commandWakeup, srv.handleWakeup)
		ctxServer.listen(commandStats, srv.handleStats)
		ctxServer.listen(commandQuit, func(conn net.Conn) {
			ctxServer.quit()
		})

		ctxServer.wait(syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
		return
	}
	return cmd
}

func cmdServerStop(_ *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stop",
		Short:         "Stop wait server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		message := "could not stop server"
		if err = ctxServer.send(commandQuit, nil); err != nil {
			err = errors.Wrap(err, message)
		}
		return
	}
	return cmd
}

func cmdSleep() *cobra.Command {
	var timeout int32
	cmd := &cobra.Command{
		Use:           "sleep <id>",
		Short:         "Block until id is woken",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			message := "could not sleep"

			var id int64
			if id, err = parseID(args[0]); err != nil {
				cmd.Usage()
				return
			}
			var result error
			err = ctxServer.send(commandSleep, func(conn net.Conn) error {
				result = readStatus(conn)
				return nil
			}, sleepArgs(id, timeout))
			if err != nil {
				return errors.Wrap(err, message)
			}
			if result != nil {
				return errors.Wrapf(result, "sleep on %d", id)
			}
			fmt.Printf("woken: %d\n", id)
			return
		},
	}
	cmd.Flags().Int32VarP(&timeout, "timeout", "t", 0, "give up after this many milliseconds (0 waits forever)")
	return cmd
}

func cmdWakeup() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wakeup <id>",
		Short:         "Wake every sleeper on id",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			message := "could not wake up"

			var id int64
			if id, err = parseID(args[0]); err != nil {
				cmd.Usage()
				return
			}
			var result error
			err = ctxServer.send(commandWakeup, func(conn net.Conn) error {
				result = readStatus(conn)
				return nil
			}, wakeupArgs(id))
			if err != nil {
				return errors.Wrap(err, message)
			}
			if result != nil {
				return errors.Wrapf(result, "wakeup %d", id)
			}
			return
		},
	}
	cmd.DisableFlagsInUseLine = true
	return cmd
}

func cmdStats() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stats",
		Short:         "Show server counters",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var st synch.Stats
			err = ctxServer.send(commandStats, func(conn net.Conn) (err error) {
				st, err = readStats(conn)
				return
			})
			if err != nil {
				return errors.Wrap(err, "could not read stats")
			}
			return printJSON(st)
		},
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "version",
		Short:         "Show version information",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("version: %s\n", version)
		},
	}
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println(string(out))
	return nil
}
