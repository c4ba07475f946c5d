// Package sentence encodes vario telemetry into the NMEA-style sentences consumed by
// flight instruments and glide computers (LK8000 `$LK8EX1`, LXNAV `$LXWP0`), and
// multiplexes between the two formats.
package sentence

import (
	"fmt"
	"strings"
)

// NoData is returned by Read when no encoded byte is ready.
const NoData = -1

// Sentence is an output format. Begin encodes a new sentence from the telemetry
// values, Available reports how many encoded bytes are left and Read hands them out
// one at a time.
type Sentence interface {
	Begin(height, velocity, temperature, battery float64)
	Available() int
	Read() int
}

// Kind selects a sentence format: KindLK8 ('L') binds LK8EX1 and any other byte
// binds LXWP0.
type Kind byte

const (
	KindLK8   Kind = 'L'
	KindLxNav Kind = 'X'
)

var ErrUnknownKind = fmt.Errorf("unknown sentence kind")

func (k Kind) String() string {
	switch k {
	case KindLK8:
		return "lk8"
	case KindLxNav:
		return "lxnav"
	default:
		return fmt.Sprintf("kind(%#x)", byte(k))
	}
}

// ParseKind accepts the format names used in configuration files and flags.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lk8", "lk8ex1":
		return KindLK8, nil
	case "lxnav", "lxwp0":
		return KindLxNav, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// buffer holds one encoded sentence and a read cursor.
type buffer struct {
	data []byte
	pos  int
}

func (b *buffer) reset(sentence []byte) {
	b.data = sentence
	b.pos = 0
}

func (b *buffer) Available() int {
	return len(b.data) - b.pos
}

func (b *buffer) Read() int {
	if b.pos >= len(b.data) {
		return NoData
	}
	c := b.data[b.pos]
	b.pos++
	return int(c)
}

// frame wraps body as `$body*CS\r\n`.
func frame(body string) []byte {
	return []byte(fmt.Sprintf("$%s*%02X\r\n", body, checksum(body)))
}

// checksum is the XOR of every byte between `$` and `*`.
func checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}
