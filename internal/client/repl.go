package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/heysubinoy/htkv/internal/protocol"
)

const (
	prompt = "> "
	usage  = "Invalid command. Use:\n  SET <key> <value>\n  GET <key>\n  QUIT\n"
)

var (
	usageColor  = color.New(color.FgYellow)
	closedColor = color.New(color.FgRed, color.Bold)
)

// Doer sends a request line and returns the response line.
type Doer interface {
	Do(line string) (string, error)
}

// RunREPL reads commands from in until QUIT, end of input, or a lost
// connection. SET and GET lines are forwarded verbatim and the server's
// response is printed as-is; anything else is rejected locally.
func RunREPL(in io.Reader, out io.Writer, c Doer) error {
	r := bufio.NewReader(in)
	for {
		fmt.Fprint(out, prompt)

		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		switch {
		case strings.EqualFold(line, "QUIT"):
			return nil

		case protocol.IsForwardable(line):
			resp, derr := c.Do(line)
			if errors.Is(derr, ErrConnectionClosed) {
				closedColor.Fprintln(out, "Server closed connection")
				return nil
			}
			if errors.Is(derr, ErrTimeout) {
				closedColor.Fprintln(out, "Request timed out; the server may still apply it. Closing connection")
				return nil
			}
			if derr != nil {
				return derr
			}
			fmt.Fprintln(out, resp)

		default:
			usageColor.Fprint(out, usage)
		}

		if err != nil {
			return nil
		}
	}
}
