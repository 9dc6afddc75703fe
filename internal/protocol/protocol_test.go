package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/htkv/pkg/kv"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Request
	}{
		{"SET alpha hello world", Request{Kind: KindSet, Key: "alpha", Value: "hello world"}},
		{"set alpha x", Request{Kind: KindSet, Key: "alpha", Value: "x"}},
		{"SeT k  leading", Request{Kind: KindSet, Key: "k", Value: " leading"}},
		{"GET alpha", Request{Kind: KindGet, Key: "alpha"}},
		{"get alpha", Request{Kind: KindGet, Key: "alpha"}},
		{"GET", Request{Kind: KindInvalid}},
		{"GET ", Request{Kind: KindInvalid}},
		{"GET a b", Request{Kind: KindInvalid}},
		{"SET", Request{Kind: KindInvalid}},
		{"SET key", Request{Kind: KindInvalid}},
		{"SET key ", Request{Kind: KindInvalid}},
		{"SET  key value", Request{Kind: KindInvalid}},
		{"BOGUS foo", Request{Kind: KindInvalid}},
		{"", Request{Kind: KindInvalid}},
		{"SETX a b", Request{Kind: KindInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestParse_Bounds(t *testing.T) {
	longKey := strings.Repeat("k", kv.MaxKeyLen+1)
	longVal := strings.Repeat("v", kv.MaxValueLen+1)

	req := Parse("SET " + longKey + " v")
	assert.Equal(t, KindInvalid, req.Kind)
	assert.ErrorIs(t, req.Err, kv.ErrKeyTooLong)

	req = Parse("SET k " + longVal)
	assert.Equal(t, KindInvalid, req.Kind)
	assert.ErrorIs(t, req.Err, kv.ErrValueTooLong)

	req = Parse("GET " + longKey)
	assert.Equal(t, KindInvalid, req.Kind)
	assert.ErrorIs(t, req.Err, kv.ErrKeyTooLong)

	req = Parse("SET " + strings.Repeat("k", kv.MaxKeyLen) + " " + strings.Repeat("v", kv.MaxValueLen))
	assert.Equal(t, KindSet, req.Kind)
}

func TestErrorResponse(t *testing.T) {
	assert.Equal(t, RespLineTooLong, ErrorResponse(ErrLineTooLong))
	assert.Equal(t, RespKeyTooLong, ErrorResponse(kv.ErrKeyTooLong))
	assert.Equal(t, RespValTooLong, ErrorResponse(kv.ErrValueTooLong))
	assert.Equal(t, RespUsage, ErrorResponse(kv.ErrInvalidKey))
	assert.Equal(t, RespUsage, ErrorResponse(nil))
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("SET a b\nGET a\r\nlast"))

	line, err := ReadLine(r, DefaultMaxLineBytes)
	require.NoError(t, err)
	assert.Equal(t, "SET a b", line)

	line, err = ReadLine(r, DefaultMaxLineBytes)
	require.NoError(t, err)
	assert.Equal(t, "GET a", line)

	line, err = ReadLine(r, DefaultMaxLineBytes)
	require.NoError(t, err)
	assert.Equal(t, "last", line)

	_, err = ReadLine(r, DefaultMaxLineBytes)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_RejectsOversizedAndResyncs(t *testing.T) {
	long := strings.Repeat("x", 100)
	// A small bufio buffer forces the reader through ErrBufferFull.
	r := bufio.NewReaderSize(strings.NewReader(long+"\nGET a\n"), 16)

	_, err := ReadLine(r, 32)
	assert.ErrorIs(t, err, ErrLineTooLong)

	line, err := ReadLine(r, 32)
	require.NoError(t, err)
	assert.Equal(t, "GET a", line)
}

func TestReadLine_LimitIncludesNewline(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("abcd\nabcde\n"))

	line, err := ReadLine(r, 5)
	require.NoError(t, err)
	assert.Equal(t, "abcd", line)

	_, err = ReadLine(r, 5)
	assert.ErrorIs(t, err, ErrLineTooLong)
}

func TestReadLine_OversizedAtEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(strings.Repeat("x", 10)))

	_, err := ReadLine(r, 4)
	assert.ErrorIs(t, err, ErrLineTooLong)

	_, err = ReadLine(r, 4)
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReadLine_PropagatesReadErrors(t *testing.T) {
	_, err := ReadLine(bufio.NewReader(failingReader{}), DefaultMaxLineBytes)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, RespOK))
	require.NoError(t, WriteResponse(&buf, "hello world"))
	assert.Equal(t, "OK\nhello world\n", buf.String())
}

func TestIsForwardable(t *testing.T) {
	assert.True(t, IsForwardable("SET a b"))
	assert.True(t, IsForwardable("get a"))
	assert.True(t, IsForwardable("GET "))
	assert.False(t, IsForwardable("GET"))
	assert.False(t, IsForwardable("GETX a"))
	assert.False(t, IsForwardable("DEL a"))
	assert.False(t, IsForwardable(""))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SET", KindSet.String())
	assert.Equal(t, "GET", KindGet.String())
	assert.Equal(t, "INVALID", KindInvalid.String())
}

func TestIsErrorResponse(t *testing.T) {
	assert.True(t, IsErrorResponse(RespUsage))
	assert.True(t, IsErrorResponse(RespInternal))
	assert.False(t, IsErrorResponse(RespOK))
	assert.False(t, IsErrorResponse(RespNotFound))
	assert.False(t, IsErrorResponse("ERROR: something I stored"))
}

func TestReadLine_DefaultLimitFitsMaximalSet(t *testing.T) {
	key := strings.Repeat("k", kv.MaxKeyLen)
	value := strings.Repeat("v", kv.MaxValueLen)
	r := bufio.NewReader(strings.NewReader("SET " + key + " " + value + "\r\n"))

	line, err := ReadLine(r, DefaultMaxLineBytes)
	require.NoError(t, err)
	assert.Equal(t, Request{Kind: KindSet, Key: key, Value: value}, Parse(line))
}
