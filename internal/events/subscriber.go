package events

// Message is one mirrored event received from outside the process.
type Message struct {
	Topic string
	Data  []byte // JSON-encoded payload
}

// Subscriber receives mirrored events.
type Subscriber interface {
	// Subscribe delivers messages on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(subject string) (<-chan Message, func(), error)
	Close() error
}
