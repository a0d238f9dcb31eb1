package domain

// ConnectionState is the simulated link state of one group
type ConnectionState string

const (
	StateDisconnected  ConnectionState = "disconnected"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateDisconnecting ConnectionState = "disconnecting"
)

// Connection names
const (
	ConnectionSource      = "source"
	ConnectionDestination = "destination"
)

// Connection represents a simulated group connection (value object)
type Connection struct {
	Name  string          `json:"name"`
	State ConnectionState `json:"state"`
}

// IsUp checks if the connection is established
func (c Connection) IsUp() bool {
	return c.State == StateConnected
}

// IsSwitching checks if the connection is in a transient state
func (c Connection) IsSwitching() bool {
	return c.State == StateConnecting || c.State == StateDisconnecting
}

// BeginToggle returns the transient state entered on toggle
func (c Connection) BeginToggle() (Connection, error) {
	switch c.State {
	case StateDisconnected:
		c.State = StateConnecting
	case StateConnected:
		c.State = StateDisconnecting
	default:
		return c, ErrConnectionBusy
	}
	return c, nil
}

// CompleteToggle returns the settled state after the switching delay
func (c Connection) CompleteToggle() Connection {
	switch c.State {
	case StateConnecting:
		c.State = StateConnected
	case StateDisconnecting:
		c.State = StateDisconnected
	}
	return c
}

// Snapshot is a point-in-time copy of the dashboard state
type Snapshot struct {
	Topic       string     `json:"topic"`
	Source      Connection `json:"source"`
	Destination Connection `json:"destination"`
	Processing  bool       `json:"processing"`
	Active      bool       `json:"active"`
	Counts      FeedCounts `json:"counts"`
}
