package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Block framing constants.
const (
	// DefaultMaxBlockSize is the default maximum binary block size (64 MB).
	DefaultMaxBlockSize = 64 << 20

	// maxBlockPrefix bounds the bytes skipped before '#'. Some instruments
	// echo a header such as "DAT2," in front of the block.
	maxBlockPrefix = 32
)

// Block framing errors.
var (
	// ErrBlockHeader indicates the reply did not start with a valid "#" header.
	ErrBlockHeader = errors.New("invalid binary block header")

	// ErrBlockTooLarge indicates the declared length exceeds the limit.
	ErrBlockTooLarge = errors.New("binary block too large")

	// ErrBlockTruncated indicates fewer bytes arrived than the header declared.
	ErrBlockTruncated = errors.New("binary block truncated")
)

// ReadBlock reads one IEEE 488.2 binary block from r.
//
// A definite block is "#<n><length><data>" where n is the number of length
// digits. "#0" introduces an indefinite block terminated by newline. The
// response terminator after a definite block is consumed when present.
func ReadBlock(r *bufio.Reader, maxSize int) ([]byte, error) {
	if err := skipToHash(r); err != nil {
		return nil, err
	}

	digit, err := r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	if digit < '0' || digit > '9' {
		return nil, fmt.Errorf("%w: length digit %q", ErrBlockHeader, digit)
	}

	if digit == '0' {
		data, err := r.ReadBytes('\n')
		if err != nil {
			return nil, truncated(err)
		}
		return data[:len(data)-1], nil
	}

	lenBuf := make([]byte, digit-'0')
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, truncated(err)
	}
	length, err := strconv.Atoi(string(lenBuf))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("%w: length %q", ErrBlockHeader, lenBuf)
	}
	if length > maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, length, maxSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, truncated(err)
	}

	consumeTerminator(r)
	return data, nil
}

func skipToHash(r *bufio.Reader) error {
	for i := 0; i <= maxBlockPrefix; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return truncated(err)
		}
		switch b {
		case '#':
			return nil
		case '\n':
			return fmt.Errorf("%w: no block in reply", ErrBlockHeader)
		}
	}
	return fmt.Errorf("%w: '#' not found", ErrBlockHeader)
}

func consumeTerminator(r *bufio.Reader) {
	b, err := r.ReadByte()
	if err != nil {
		return
	}
	if b == '\r' {
		if b, err = r.ReadByte(); err != nil {
			return
		}
	}
	if b != '\n' {
		_ = r.UnreadByte()
	}
}

func truncated(err error) error {
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrBlockTruncated
	}
	return err
}

// EncodeBlock frames data as a definite-length block with a 9-digit length
// field, followed by a newline terminator.
func EncodeBlock(data []byte) []byte {
	out := make([]byte, 0, len(data)+12)
	out = append(out, fmt.Sprintf("#9%09d", len(data))...)
	out = append(out, data...)
	return append(out, '\n')
}
