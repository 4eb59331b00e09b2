package core

// DefaultEventBuffer is the outbound queue size used when none is given.
const DefaultEventBuffer = 64

// Client is one live transport connection as seen by the core layer.
// The transport writes to Commands and drains Events; the hub closes Events
// once the connection has been torn down.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	gone chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, buffer),
		gone:     make(chan struct{}),
	}
}

// Done is closed after the hub has unregistered the client.
func (c *Client) Done() <-chan struct{} {
	return c.gone
}
