package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/diggyk/fwd/internal/fwderr"
)

// MaxDataPayload bounds a single Data frame's payload (spec §4.1: "recommended
// 16 KiB"); the bridge fragments larger reads before framing them.
const MaxDataPayload = 16 * 1024

// maxPlausibleLength is the ceiling past which a length prefix is treated as
// MessageCorrupt rather than an (enormous, legal) allocation request. It is
// far above MaxDataPayload to tolerate peers that bundle bigger single writes
// than recommended without mistaking a flipped-endian value for a crash.
const maxPlausibleLength = 64 * 1024 * 1024

// Reader reads successive Messages from an underlying byte stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r (it will be buffered internally if not already).
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next complete message, or an error:
//   - fwderr.MessageIncomplete if the transport closed mid-frame
//   - fwderr.MessageUnknown if the tag is not in the taxonomy
//   - fwderr.MessageCorrupt if a length prefix is implausible
func (rd *Reader) Read() (Message, error) {
	tagByte, err := rd.r.ReadByte()
	if err != nil {
		return Message{}, wrapIncomplete(err)
	}
	tag := Tag(tagByte)

	switch tag {
	case TagPing:
		return Ping(), nil
	case TagRefresh:
		return Refresh(), nil
	case TagHello:
		major, err := rd.readU16()
		if err != nil {
			return Message{}, err
		}
		minor, err := rd.readU16()
		if err != nil {
			return Message{}, err
		}
		extensions, err := rd.readStringVec()
		if err != nil {
			return Message{}, err
		}
		return Hello(major, minor, extensions), nil
	case TagPorts:
		count, err := rd.readU32()
		if err != nil {
			return Message{}, err
		}
		if count > maxPlausibleLength {
			return Message{}, fwderr.MessageCorrupt
		}
		var ports []PortDescriptor
		for i := uint32(0); i < count; i++ {
			port, err := rd.readU16()
			if err != nil {
				return Message{}, err
			}
			desc, err := rd.readString()
			if err != nil {
				return Message{}, err
			}
			ports = append(ports, PortDescriptor{Port: port, Desc: desc})
		}
		return PortsMsg(ports), nil
	case TagConnect:
		channel, err := rd.readU64()
		if err != nil {
			return Message{}, err
		}
		port, err := rd.readU16()
		if err != nil {
			return Message{}, err
		}
		return Connect(channel, port), nil
	case TagConnected:
		channel, err := rd.readU64()
		if err != nil {
			return Message{}, err
		}
		return Connected(channel), nil
	case TagClose:
		channel, err := rd.readU64()
		if err != nil {
			return Message{}, err
		}
		return Close(channel), nil
	case TagData:
		channel, err := rd.readU64()
		if err != nil {
			return Message{}, err
		}
		length, err := rd.readU32()
		if err != nil {
			return Message{}, err
		}
		if length > maxPlausibleLength {
			return Message{}, fwderr.MessageCorrupt
		}
		var buf []byte
		if length > 0 {
			buf = make([]byte, length)
			if _, err := io.ReadFull(rd.r, buf); err != nil {
				return Message{}, wrapIncomplete(err)
			}
		}
		return Data(channel, buf), nil
	default:
		return Message{}, fwderr.MessageUnknown
	}
}

func (rd *Reader) readU16() (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, wrapIncomplete(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func (rd *Reader) readU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, wrapIncomplete(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (rd *Reader) readU64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		return 0, wrapIncomplete(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (rd *Reader) readString() (string, error) {
	length, err := rd.readU32()
	if err != nil {
		return "", err
	}
	if length > maxPlausibleLength {
		return "", fwderr.MessageCorrupt
	}
	var buf []byte
	if length > 0 {
		buf = make([]byte, length)
		if _, err := io.ReadFull(rd.r, buf); err != nil {
			return "", wrapIncomplete(err)
		}
	}
	return string(buf), nil
}

func (rd *Reader) readStringVec() ([]string, error) {
	count, err := rd.readU32()
	if err != nil {
		return nil, err
	}
	if count > maxPlausibleLength {
		return nil, fwderr.MessageCorrupt
	}
	var out []string
	for i := uint32(0); i < count; i++ {
		s, err := rd.readString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func wrapIncomplete(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fwderr.MessageIncomplete
	}
	return fwderr.NewIO("read", err)
}

// Writer emits Messages atomically with respect to the underlying writer:
// concurrent calls to Write are serialized by an internal mutex so a frame
// from one caller is never interleaved with a frame from another (callers
// are still expected to funnel through a single writer pump per spec §4.3;
// the mutex here is a defensive second line, not a substitute for that).
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write emits a single framed message.
func (wr *Writer) Write(msg Message) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	switch msg.Tag {
	case TagPing, TagRefresh:
		_, err := wr.w.Write([]byte{byte(msg.Tag)})
		return fwderr.NewIO("write", err)
	case TagHello:
		buf := append([]byte{byte(TagHello)}, be16(msg.Major)...)
		buf = append(buf, be16(msg.Minor)...)
		buf = append(buf, be32(uint32(len(msg.Extensions)))...)
		for _, ext := range msg.Extensions {
			buf = appendString(buf, ext)
		}
		_, err := wr.w.Write(buf)
		return fwderr.NewIO("write", err)
	case TagPorts:
		buf := append([]byte{byte(TagPorts)}, be32(uint32(len(msg.Ports)))...)
		for _, p := range msg.Ports {
			buf = append(buf, be16(p.Port)...)
			buf = appendString(buf, p.Desc)
		}
		_, err := wr.w.Write(buf)
		return fwderr.NewIO("write", err)
	case TagConnect:
		buf := append([]byte{byte(TagConnect)}, be64(msg.Channel)...)
		buf = append(buf, be16(msg.Port)...)
		_, err := wr.w.Write(buf)
		return fwderr.NewIO("write", err)
	case TagConnected, TagClose:
		buf := append([]byte{byte(msg.Tag)}, be64(msg.Channel)...)
		_, err := wr.w.Write(buf)
		return fwderr.NewIO("write", err)
	case TagData:
		header := append([]byte{byte(TagData)}, be64(msg.Channel)...)
		header = append(header, be32(uint32(len(msg.Data)))...)
		if _, err := wr.w.Write(header); err != nil {
			return fwderr.NewIO("write", err)
		}
		if len(msg.Data) > 0 {
			if _, err := wr.w.Write(msg.Data); err != nil {
				return fwderr.NewIO("write", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("wire: cannot encode unknown tag %d", msg.Tag)
	}
}

func be16(v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b[:]
}

func be32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, be32(uint32(len(s)))...)
	return append(buf, s...)
}
