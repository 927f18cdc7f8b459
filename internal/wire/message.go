// Package wire implements the frame codec and message taxonomy of the
// multiplexed tunnel protocol (spec §4.1): a stream of self-delimiting,
// tag-prefixed frames with big-endian fixed-width integers and
// u32-length-prefixed variable fields.
package wire

// Tag identifies a message kind. The numbering is an implementation choice
// but must stay stable within a deployed version.
type Tag byte

const (
	TagPing      Tag = 0
	TagHello     Tag = 1
	TagRefresh   Tag = 2
	TagPorts     Tag = 3
	TagConnect   Tag = 4
	TagConnected Tag = 5
	TagClose     Tag = 6
	TagData      Tag = 7
)

func (t Tag) String() string {
	switch t {
	case TagPing:
		return "Ping"
	case TagHello:
		return "Hello"
	case TagRefresh:
		return "Refresh"
	case TagPorts:
		return "Ports"
	case TagConnect:
		return "Connect"
	case TagConnected:
		return "Connected"
	case TagClose:
		return "Close"
	case TagData:
		return "Data"
	default:
		return "Unknown"
	}
}

// PortDescriptor is a (port, description) pair carried only inside a Ports
// message; it is not persisted anywhere.
type PortDescriptor struct {
	Port uint16
	Desc string
}

// Message is the closed taxonomy of frames exchanged over the transport.
// Exactly one of the typed fields is meaningful, selected by Tag.
type Message struct {
	Tag Tag

	// Hello
	Major      uint16
	Minor      uint16
	Extensions []string

	// Ports
	Ports []PortDescriptor

	// Connect / Connected / Close / Data
	Channel uint64
	Port    uint16 // Connect only
	Data    []byte // Data only
}

func Ping() Message { return Message{Tag: TagPing} }

func Hello(major, minor uint16, extensions []string) Message {
	return Message{Tag: TagHello, Major: major, Minor: minor, Extensions: extensions}
}

func Refresh() Message { return Message{Tag: TagRefresh} }

func PortsMsg(ports []PortDescriptor) Message {
	return Message{Tag: TagPorts, Ports: ports}
}

func Connect(channel uint64, port uint16) Message {
	return Message{Tag: TagConnect, Channel: channel, Port: port}
}

func Connected(channel uint64) Message {
	return Message{Tag: TagConnected, Channel: channel}
}

func Close(channel uint64) Message {
	return Message{Tag: TagClose, Channel: channel}
}

func Data(channel uint64, payload []byte) Message {
	return Message{Tag: TagData, Channel: channel, Data: payload}
}
