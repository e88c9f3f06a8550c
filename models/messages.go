package models

import "encoding/json"

// Reliable channel message types.
const (
	MsgJoin      = "join"
	MsgStart     = "start"
	MsgIntent    = "intent"
	MsgRestart   = "restart"
	MsgHeartbeat = "heartbeat"
	MsgQuit      = "quit"

	MsgWelcome = "welcome"
	MsgError   = "error"
	MsgRoster  = "roster"
	MsgState   = "state"
)

// Unreliable channel datagram types.
const (
	DatagramHello = "hello"
	DatagramState = "state"
	DatagramPing  = "ping"
)

// MaxDatagramSize is the largest payload a single UDP datagram can carry.
const MaxDatagramSize = 65507

// Envelope wraps every reliable channel frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRequest struct {
	Name     string `json:"name" jsonschema:"title=Display name,description=Printable name shown to other players; trimmed to 16 characters,maxLength=64"`
	Password string `json:"password,omitempty" jsonschema:"description=Required when the server listens on a public address"`
}

// JoinResponse is sent as a welcome on success; Error carries one of the
// Reason* strings otherwise.
type JoinResponse struct {
	PlayerID int    `json:"playerId,omitempty"`
	Token    string `json:"token,omitempty"`
	UDPPort  int    `json:"udpPort,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Mode     Mode   `json:"mode,omitempty"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Intent is a player's request for the next tick. Only the fields that are
// set matter; absent fields mean "no request" for that category.
type Intent struct {
	Direction *Direction `json:"direction,omitempty" jsonschema:"description=One of up/down/left/right; a reversal into the neck is ignored"`
	Fire      bool       `json:"fire,omitempty" jsonschema:"description=Fire a bomb if a charge is held"`
	Ghost     bool       `json:"ghost,omitempty" jsonschema:"description=Hide the snake from opponents for five seconds"`
	Pause     bool       `json:"pause,omitempty" jsonschema:"description=Toggle pause while a round is running"`
	Quit      bool       `json:"quit,omitempty" jsonschema:"description=Leave the match"`
	Start     bool       `json:"start,omitempty" jsonschema:"description=Start the match; lobby only"`
	Restart   bool       `json:"restart,omitempty" jsonschema:"description=Start a new round; finished rounds only"`
}

// Empty reports whether the intent requests nothing.
func (i Intent) Empty() bool {
	return i.Direction == nil && !i.Fire && !i.Ghost && !i.Pause && !i.Quit && !i.Start && !i.Restart
}

type HeartbeatMessage struct {
	SentAt     int64 `json:"sentAt,omitempty"`
	ServerTime int64 `json:"serverTime,omitempty"`
}

type RosterMessage struct {
	Players []RosterEntry `json:"players"`
}

// Datagram is the unit carried on the unreliable channel.
type Datagram struct {
	Type     string    `msgpack:"t"`
	Token    string    `msgpack:"k,omitempty"`
	Tick     uint64    `msgpack:"i,omitempty"`
	Snapshot *Snapshot `msgpack:"s,omitempty"`
}
