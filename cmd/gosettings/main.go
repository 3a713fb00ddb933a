// Program gosettings is a command-line client for the settings bus
// protocol: it can read, write, and watch individual settings, and
// enumerate everything a daemon knows about.
//
// Connection is configured through the environment rather than flags:
// GOSETTINGS_ADDR dials a TCP daemon at that address, GOSETTINGS_LOCAL=1
// spins up an in-process daemon for demos, and by default the client
// frames the settings protocol over stdin/stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creachadair/command"

	"github.com/swiftnav-community/gosettings"
	"github.com/swiftnav-community/gosettings/bus"
	"github.com/swiftnav-community/gosettings/codec"
	"github.com/swiftnav-community/gosettings/daemon"
	"github.com/swiftnav-community/gosettings/simulate"
	"github.com/swiftnav-community/gosettings/wire"
)

// cliSenderID is the sender id this program stamps on its own outbound
// requests, distinct from wire.DaemonSenderID.
const cliSenderID = 0x01

func dial() (*gosettings.Client, func() error, error) {
	if os.Getenv("GOSETTINGS_LOCAL") != "" {
		pair := simulate.NewPair()
		return pair.Client, pair.Close, nil
	}
	if addr := os.Getenv("GOSETTINGS_ADDR"); addr != "" {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		s := bus.NewStream(conn, conn)
		go s.Serve()
		return gosettings.NewClient(s, cliSenderID), s.Close, nil
	}
	s := bus.NewStream(os.Stdin, stdoutWriteCloser{})
	go s.Serve()
	return gosettings.NewClient(s, cliSenderID), s.Close, nil
}

// stdoutWriteCloser adapts os.Stdout to io.WriteCloser without letting
// bus.Stream's Close actually close the process's standard output.
type stdoutWriteCloser struct{}

func (stdoutWriteCloser) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdoutWriteCloser) Close() error                { return nil }

// typeFlag extracts a leading "--type=<name>" argument, if present, and
// returns the remaining positional arguments alongside it.
func typeFlag(args []string) (typeName string, rest []string) {
	for _, a := range args {
		if name, ok := strings.CutPrefix(a, "--type="); ok {
			typeName = name
			continue
		}
		rest = append(rest, a)
	}
	return typeName, rest
}

func codecByName(name string) (codec.Codec, []byte, error) {
	reg := codec.NewRegistry()
	switch name {
	case "", "string":
		return reg.MustLookup(codec.String), make([]byte, 256), nil
	case "int":
		return reg.MustLookup(codec.Int), make([]byte, 4), nil
	case "float":
		return reg.MustLookup(codec.Float), make([]byte, 8), nil
	case "bool":
		return reg.MustLookup(codec.Bool), make([]byte, 1), nil
	default:
		return nil, nil, fmt.Errorf("unknown type %q (want string, int, float, or bool)", name)
	}
}

func main() {
	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: "A client for the settings bus request/reply protocol.",
		Commands: []*command.C{
			{
				Name:  "read",
				Usage: "[--type=string|int|float|bool] <section> <name>",
				Help:  "Read a single setting's current value from the daemon.",
				Run: func(env *command.Env) error {
					typeName, args := typeFlag(env.Args)
					if len(args) != 2 {
						return env.Usagef("expected exactly <section> <name>")
					}
					c, closeFn, err := dial()
					if err != nil {
						return err
					}
					defer closeFn()

					cd, buf, err := codecByName(typeName)
					if err != nil {
						return err
					}
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := c.Read(ctx, args[0], args[1], buf, cd); err != nil {
						return err
					}
					text, err := cd.ToText(buf)
					if err != nil {
						return err
					}
					fmt.Println(text)
					return nil
				},
			},
			{
				Name:  "write",
				Usage: "<section> <name> <value>",
				Help:  "Write a setting's value on the daemon and wait for acknowledgement.",
				Run: func(env *command.Env) error {
					args := env.Args
					if len(args) != 3 {
						return env.Usagef("expected exactly <section> <name> <value>")
					}
					c, closeFn, err := dial()
					if err != nil {
						return err
					}
					defer closeFn()

					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return c.Write(ctx, args[0], args[1], args[2], "")
				},
			},
			{
				Name:  "watch",
				Usage: "[--type=string|int|float|bool] <section> <name>",
				Help:  "Register a local mirror of a setting and print its value each time it changes.",
				Run: func(env *command.Env) error {
					typeName, args := typeFlag(env.Args)
					if len(args) != 2 {
						return env.Usagef("expected exactly <section> <name>")
					}
					c, closeFn, err := dial()
					if err != nil {
						return err
					}
					defer closeFn()

					cd, buf, err := codecByName(typeName)
					if err != nil {
						return err
					}
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := c.RegisterWatch(ctx, args[0], args[1], buf, cd); err != nil {
						return err
					}

					last := ""
					for {
						for _, s := range c.Settings() {
							if s.Section == args[0] && s.Name == args[1] && s.Value != last {
								last = s.Value
								fmt.Println(s.Value)
							}
						}
						time.Sleep(200 * time.Millisecond)
					}
				},
			},
			{
				Name: "list",
				Help: "Enumerate every setting the daemon knows about, via READ_BY_INDEX.",
				Run: func(env *command.Env) error {
					c, closeFn, err := dial()
					if err != nil {
						return err
					}
					defer closeFn()

					ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					for index := uint16(0); ; index++ {
						res, err := c.ReadByIndex(ctx, index)
						if err != nil {
							return err
						}
						if res.Done {
							return nil
						}
						fmt.Printf("%s.%s = %s\n", res.Section, res.Name, res.Value)
					}
				},
			},
			{
				Name:  "serve",
				Usage: "<addr>",
				Help:  "Run a minimal in-memory settings daemon, listening for connections on addr.",
				Run: func(env *command.Env) error {
					args := env.Args
					if len(args) != 1 {
						return env.Usagef("expected exactly <addr>")
					}
					ln, err := net.Listen("tcp", args[0])
					if err != nil {
						return err
					}
					defer ln.Close()

					srv := daemon.NewServer(wire.DaemonSenderID)
					fmt.Fprintf(os.Stderr, "listening on %s\n", ln.Addr())
					for {
						conn, err := ln.Accept()
						if err != nil {
							return err
						}
						go serveConn(srv, conn)
					}
				},
			},
			command.VersionCommand(),
			command.HelpCommand(nil),
		},
	}
	command.RunOrFail(root.NewEnv(nil).MergeFlags(true), os.Args[1:])
}

func serveConn(srv *daemon.Server, conn net.Conn) {
	defer conn.Close()
	s := bus.NewStream(conn, closeIgnoringConn{conn})
	detach, err := srv.Attach(s)
	if err != nil {
		return
	}
	defer detach()
	_ = s.Serve()
}

// closeIgnoringConn lets serveConn close the net.Conn itself via defer,
// since bus.Stream.Close would otherwise race the deferred conn.Close.
type closeIgnoringConn struct{ w io.Writer }

func (c closeIgnoringConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (closeIgnoringConn) Close() error                  { return nil }
