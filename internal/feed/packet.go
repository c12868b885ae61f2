package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
)

// socket.io packet types, carried inside Engine.IO message packets.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// openPacket is the payload of the Engine.IO open packet.
type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int64  `json:"pingInterval"` // ms
	PingTimeout  int64  `json:"pingTimeout"`  // ms
	MaxPayload   int64  `json:"maxPayload"`
}

// Event is a socket.io event: a name and its first argument.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// parseEvent decodes the body of a socket.io EVENT packet, i.e. the text
// following "42". It accepts an optional namespace prefix and ack id.
func parseEvent(body string) (Event, error) {
	if strings.HasPrefix(body, "/") {
		i := strings.IndexByte(body, ',')
		if i < 0 {
			return Event{}, fmt.Errorf("event packet: unterminated namespace")
		}
		body = body[i+1:]
	}
	body = strings.TrimLeft(body, "0123456789")

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(body), &args); err != nil {
		return Event{}, fmt.Errorf("event packet: %w", err)
	}
	if len(args) == 0 {
		return Event{}, fmt.Errorf("event packet: empty argument list")
	}

	var ev Event
	if err := json.Unmarshal(args[0], &ev.Name); err != nil {
		return Event{}, fmt.Errorf("event name: %w", err)
	}
	if len(args) > 1 {
		ev.Payload = args[1]
	}
	return ev, nil
}
