package bridge

// Frame types.
const (
	// host -> daemon
	TypeHello   = "hello"
	TypeBreak   = "break"
	TypeDamage  = "damage"
	TypeCommand = "command"
	TypeLeave   = "leave"

	// daemon -> host
	TypeWelcome  = "welcome"
	TypeReply    = "reply"
	TypeSetBlock = "set_block"
	TypeNotice   = "notice"
	TypeMessage  = "message"
)

// Frame is the single JSON message shape in both directions. Fields unused
// by a type are omitted.
type Frame struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq,omitempty"`

	// hello / welcome
	Token   string   `json:"token,omitempty"`
	Worlds  []string `json:"worlds,omitempty"`
	Session string   `json:"session,omitempty"`

	// events and block writes
	Player   string `json:"player,omitempty"`
	World    string `json:"world,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Z        int    `json:"z"`
	Block    string `json:"block,omitempty"`
	Expect   string `json:"expect,omitempty"`
	Deferred bool   `json:"deferred,omitempty"`

	// command / reply / notice / message
	Text    string   `json:"text,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Cancel  bool     `json:"cancel,omitempty"`
	Matched bool     `json:"matched,omitempty"`
	Action  string   `json:"action,omitempty"`
}
