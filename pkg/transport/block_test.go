package transport

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		rest string
	}{
		{"definite", "#15hello\n", "hello", ""},
		{"nine digit", "#9000000003abc\n*", "abc", "*"},
		{"crlf terminator", "#13abc\r\nNEXT", "abc", "NEXT"},
		{"no terminator", "#13abcNEXT", "abc", "NEXT"},
		{"prefixed header", "DAT2,#14wxyz\n", "wxyz", ""},
		{"binary payload", "#14\n\x00#\xff\n", "\n\x00#\xff", ""},
		{"empty", "#10\n", "", ""},
		{"indefinite", "#0raw data\nNEXT", "raw data", "NEXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := reader(tt.in)
			got, err := ReadBlock(r, DefaultMaxBlockSize)
			if err != nil {
				t.Fatalf("ReadBlock failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("data = %q, want %q", got, tt.want)
			}
			rest := make([]byte, 16)
			n, _ := r.Read(rest)
			if string(rest[:n]) != tt.rest {
				t.Errorf("remaining = %q, want %q", rest[:n], tt.rest)
			}
		})
	}
}

func TestReadBlockErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		max     int
		wantErr error
	}{
		{"no hash", "1.25E-3\n", DefaultMaxBlockSize, ErrBlockHeader},
		{"bad digit", "#x123", DefaultMaxBlockSize, ErrBlockHeader},
		{"bad length", "#2a1xxxxxxxxxx", DefaultMaxBlockSize, ErrBlockHeader},
		{"too large", "#3100" + strings.Repeat("x", 100), 10, ErrBlockTooLarge},
		{"short data", "#15abc", DefaultMaxBlockSize, ErrBlockTruncated},
		{"short length", "#91234", DefaultMaxBlockSize, ErrBlockTruncated},
		{"empty input", "", DefaultMaxBlockSize, ErrBlockTruncated},
		{"long prefix", strings.Repeat("a", 64) + "#11x", DefaultMaxBlockSize, ErrBlockHeader},
		{"indefinite unterminated", "#0abc", DefaultMaxBlockSize, ErrBlockTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadBlock(reader(tt.in), tt.max)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeBlockRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x80, '\n'}, 100)
	encoded := EncodeBlock(payload)

	if !bytes.HasPrefix(encoded, []byte("#9000000300")) {
		t.Errorf("header = %q", encoded[:11])
	}

	got, err := ReadBlock(bufio.NewReader(bytes.NewReader(encoded)), DefaultMaxBlockSize)
	if err != nil {
		t.Fatalf("ReadBlock failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload mismatch")
	}
}
