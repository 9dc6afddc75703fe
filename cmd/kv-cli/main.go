package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/heysubinoy/htkv/internal/client"
	"github.com/heysubinoy/htkv/pkg/config"
)

func main() {
	socketPath := flag.String("socket", "", "Server socket path (default: $HTKV_SOCKET_PATH or "+config.DefaultSocketPath+")")
	timeout := flag.Duration("timeout", 5*time.Second, "Dial timeout (0 disables)")
	requestTimeout := flag.Duration("request-timeout", 0, "Per-request timeout; the server queues clients, so 0 (wait) is the default")
	flag.Usage = printUsage
	flag.Parse()

	path := *socketPath
	if path == "" {
		path = os.Getenv("HTKV_SOCKET_PATH")
	}
	if path == "" {
		path = config.DefaultSocketPath
	}

	c, err := client.Dial(path, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
	c.SetRequestTimeout(*requestTimeout)

	if err := client.RunREPL(os.Stdin, os.Stdout, c); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		c.Close()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  kv-cli [-socket path] [-timeout d] [-request-timeout d]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  SET <key> <value>")
	fmt.Fprintln(os.Stderr, "  GET <key>")
	fmt.Fprintln(os.Stderr, "  QUIT")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
