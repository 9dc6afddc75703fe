// Package protocol implements the line-oriented text protocol spoken between
// the htkv server and its clients.
//
// Every request and every response is a single line terminated by '\n':
//
//	SET <key> <value...>   ->  OK
//	GET <key>              ->  <value> | NOT_FOUND
//	anything else          ->  ERROR: Use SET <key> <value> or GET <key>
//
// Keywords are matched case-insensitively and fields are separated by a single
// space. The value of a SET is the remainder of the line and may contain
// spaces.
package protocol

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/heysubinoy/htkv/pkg/kv"
)

// DefaultMaxLineBytes bounds a request line, newline included. It is the
// smallest limit that still admits every valid SET.
const DefaultMaxLineBytes = kv.MaxRequestLen

// Responses, without the trailing newline.
const (
	RespOK          = "OK"
	RespNotFound    = "NOT_FOUND"
	RespUsage       = "ERROR: Use SET <key> <value> or GET <key>"
	RespLineTooLong = "ERROR: line too long"
	RespKeyTooLong  = "ERROR: key too long"
	RespValTooLong  = "ERROR: value too long"
	RespInternal    = "ERROR: internal error"
)

// ErrLineTooLong is returned by ReadLine when a line exceeds the limit. The
// rest of the offending line has already been consumed.
var ErrLineTooLong = errors.New("line too long")

// Kind identifies a parsed request.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindSet
	KindGet
)

func (k Kind) String() string {
	switch k {
	case KindSet:
		return "SET"
	case KindGet:
		return "GET"
	default:
		return "INVALID"
	}
}

// Request is the typed result of parsing one line.
type Request struct {
	Kind  Kind
	Key   string
	Value string // SET only

	// Err explains why a request is KindInvalid. It is nil for plain
	// grammar mismatches and one of the kv bound errors otherwise.
	Err error
}

// ReadLine reads one line of at most limit bytes (newline included) from r and
// returns it without the line terminator. A final line without a newline is
// returned as-is; io.EOF is only returned when no bytes were read.
//
// Lines longer than limit are discarded up to and including their newline and
// reported as ErrLineTooLong, leaving r positioned at the next line.
func ReadLine(r *bufio.Reader, limit int) (string, error) {
	var (
		buf      []byte
		overflow bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !overflow {
			if len(buf)+len(chunk) > limit {
				overflow = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			if overflow {
				return "", ErrLineTooLong
			}
			return trimEOL(buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if overflow {
				return "", ErrLineTooLong
			}
			if len(buf) == 0 {
				return "", io.EOF
			}
			return trimEOL(buf), nil
		default:
			return "", err
		}
	}
}

func trimEOL(b []byte) string {
	s := string(b)
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// Parse turns one request line (without its terminator) into a Request.
func Parse(line string) Request {
	keyword, rest, _ := strings.Cut(line, " ")

	switch {
	case strings.EqualFold(keyword, "SET"):
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" || value == "" {
			return Request{Kind: KindInvalid}
		}
		if err := kv.ValidateKey(key); err != nil {
			return Request{Kind: KindInvalid, Err: err}
		}
		if err := kv.ValidateValue(value); err != nil {
			return Request{Kind: KindInvalid, Err: err}
		}
		return Request{Kind: KindSet, Key: key, Value: value}

	case strings.EqualFold(keyword, "GET"):
		if rest == "" || strings.ContainsAny(rest, " \t") {
			return Request{Kind: KindInvalid}
		}
		if err := kv.ValidateKey(rest); err != nil {
			return Request{Kind: KindInvalid, Err: err}
		}
		return Request{Kind: KindGet, Key: rest}
	}

	return Request{Kind: KindInvalid}
}

// ErrorResponse maps a parse or store error to its response line.
func ErrorResponse(err error) string {
	switch {
	case errors.Is(err, ErrLineTooLong):
		return RespLineTooLong
	case errors.Is(err, kv.ErrKeyTooLong):
		return RespKeyTooLong
	case errors.Is(err, kv.ErrValueTooLong):
		return RespValTooLong
	default:
		return RespUsage
	}
}

// IsErrorResponse reports whether resp is one of the server's error lines.
// A stored value may itself start with "ERROR:", so only exact matches count.
func IsErrorResponse(resp string) bool {
	switch resp {
	case RespUsage, RespLineTooLong, RespKeyTooLong, RespValTooLong, RespInternal:
		return true
	}
	return false
}

// WriteResponse writes resp followed by a newline.
func WriteResponse(w io.Writer, resp string) error {
	_, err := io.WriteString(w, resp+"\n")
	return err
}

// IsForwardable reports whether a client should send line to the server:
// only lines starting with "SET " or "GET " (any case) qualify.
func IsForwardable(line string) bool {
	if len(line) < 4 || line[3] != ' ' {
		return false
	}
	kw := line[:3]
	return strings.EqualFold(kw, "SET") || strings.EqualFold(kw, "GET")
}
