package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/diggyk/fwd/internal/endpoint"
	"github.com/diggyk/fwd/internal/logger"
	"github.com/diggyk/fwd/internal/refresh"
)

var help = `
  Usage: fwd [command] [--help]

  Commands:
    server - runs fwd in server mode, speaking the wire protocol on its
             own stdin/stdout (normally invoked at the far end of an ssh
             session, never directly by a human)
    client - runs fwd in client mode, spawning a transport to a remote
             host and exposing the ports it announces on loopback

  Read more:
    https://github.com/diggyk/fwd

`

func sigIntHandler(ctx context.Context, cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)
	select {
	case <-sig:
		log.Printf("SIGINT received; cancelling main ctx")
	case <-ctx.Done():
	}
	signal.Stop(sig)
	cancel()
}

func main() {
	ctx, ctxCancel := context.WithCancel(context.Background())
	defer ctxCancel()
	flag.Bool("help", false, "")
	flag.Bool("h", false, "")
	flag.Usage = func() {}
	flag.Parse()

	args := flag.Args()

	subcmd := ""
	if len(args) > 0 {
		subcmd = args[0]
		args = args[1:]
	}

	switch subcmd {
	case "server":
		go sigIntHandler(ctx, ctxCancel)
		runServer(ctx, args)
		log.Printf("Exiting fwd server")
	case "client":
		go sigIntHandler(ctx, ctxCancel)
		runClient(ctx, args)
		log.Printf("Exiting fwd client")
	default:
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

var commonHelp = `
    -v, Enable verbose (debug) logging

    --log-level, One of error|warning|info|debug|trace (overrides -v)

    --help, This help text

  Read more:
    https://github.com/diggyk/fwd

`

var serverHelp = `
  Usage: fwd server [options]

  Reads and writes the fwd wire protocol on its own stdin/stdout. Not
  meant to be run interactively — it is the command a client spawns at
  the far end of its transport (e.g. over ssh).

  Options:

    --ports-file, Path to a "<port>: <description>" list to announce
    to the client instead of the default /proc-derived listener scan.
    Reloaded automatically on change when the file can be watched.
` + commonHelp

func runServer(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("server", flag.ContinueOnError)

	portsFile := flags.String("ports-file", "", "")
	verbose := flags.Bool("v", false, "")
	logLevel := flags.String("log-level", "", "")

	flags.Usage = func() {
		fmt.Print(serverHelp)
		os.Exit(1)
	}
	flags.Parse(args)

	log := logger.New("fwd", resolveLevel(*verbose, *logLevel))

	var source refresh.Source
	if *portsFile != "" {
		s, err := refresh.NewStaticFile(log, *portsFile)
		if err != nil {
			log.ELogf("could not load ports file %s: %s", *portsFile, err)
			os.Exit(1)
		}
		source = s
	} else {
		source = refresh.NewProcFS()
	}

	if err := endpoint.RunServer(log, os.Stdin, os.Stdout, source); err != nil {
		log.ELogf("server exited with error: %s", err)
		os.Exit(1)
	}
}

var clientHelp = `
  Usage: fwd client [options] <remote-host>

  <remote-host> is passed to ssh -T as the destination to run the
  server subcommand on. fwd must be on the remote host's PATH.

  Each port the server announces is bound on 127.0.0.1 at the same
  port number locally, and connections accepted there are tunneled
  to the corresponding listener on the remote host.

  Options:
` + commonHelp

func runClient(ctx context.Context, args []string) {
	flags := flag.NewFlagSet("client", flag.ContinueOnError)

	verbose := flags.Bool("v", false, "")
	logLevel := flags.String("log-level", "", "")

	flags.Usage = func() {
		fmt.Print(clientHelp)
		os.Exit(1)
	}
	flags.Parse(args)
	args = flags.Args()

	log := logger.New("fwd", resolveLevel(*verbose, *logLevel))

	if len(args) < 1 {
		log.ELogf("a remote host is required")
		os.Exit(1)
	}
	remote := args[0]

	cmd := exec.CommandContext(ctx, "ssh", "-T", remote, "fwd", "server")
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.ELogf("failed to open ssh stdin: %s", err)
		os.Exit(1)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.ELogf("failed to open ssh stdout: %s", err)
		os.Exit(1)
	}
	if err := cmd.Start(); err != nil {
		log.ELogf("failed to spawn ssh: %s", err)
		os.Exit(1)
	}

	err = endpoint.RunClient(log, stdout, stdin, os.Stderr)
	stdin.Close()
	if err != nil {
		log.ELogf("client exited with error: %s", err)
		cmd.Process.Kill()
		cmd.Wait()
		os.Exit(1)
	}
	cmd.Wait()
}

func resolveLevel(verbose bool, explicit string) logger.Level {
	if explicit != "" {
		if parsed := logger.ParseLevel(explicit); parsed != logger.LevelUnknown {
			return parsed
		}
	}
	if verbose {
		return logger.LevelDebug
	}
	return logger.LevelInfo
}
