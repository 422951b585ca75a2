package chatkit

const (
	EventMemberJoin   = "member/join"
	EventMemberUpdate = "member/update"
	EventMemberLeave  = "member/leave"
)

// Event is delivered on the session event bus. Payload is the live object
// the event is about (for member events, the cached member).
type Event struct {
	Type    string             `json:"type"`
	Key     MemberCompositeKey `json:"key"`
	Payload any                `json:"payload,omitempty"`
}
