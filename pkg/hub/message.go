// Package hub fans coaching events and preview frames out to websocket
// subscribers using a single channel-driven loop.
package hub

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded coaching event.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data, an annotated JPEG preview frame.
	BinaryMessage
)

// Message is one broadcast unit. Topic scopes it to the subscribers of one
// coaching session; an empty topic reaches everyone.
type Message struct {
	Type  MessageType
	Topic string
	Data  []byte
}

// NewJSONMessage creates a JSON message for topic.
func NewJSONMessage(topic string, data []byte) Message {
	return Message{Type: JSONMessage, Topic: topic, Data: data}
}

// NewBinaryMessage creates a binary message for topic.
func NewBinaryMessage(topic string, data []byte) Message {
	return Message{Type: BinaryMessage, Topic: topic, Data: data}
}
