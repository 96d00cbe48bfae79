package collab

import (
	"encoding/json"

	"github.com/inamate/bspview/internal/engine"
	"github.com/inamate/bspview/internal/scene"
)

type Message struct {
	Type     string          `json:"type"`
	SceneID  string          `json:"sceneId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

type WelcomePayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Version     int    `json:"version"`
	CanEdit     bool   `json:"canEdit"`
}

// EyePayload moves a viewer's eye. Width and Height size the viewport the
// returned commands are fitted to; zero means the scene's own size.
type EyePayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Order  string  `json:"order,omitempty"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

// OrderPayload answers an eye update with the draw commands in the
// requested order.
type OrderPayload struct {
	Version  int                  `json:"version"`
	Eye      scene.Point          `json:"eye"`
	Order    string               `json:"order"`
	Commands []engine.DrawCommand `json:"commands"`
}

type PresencePayload struct {
	DisplayName string       `json:"displayName,omitempty"`
	Eye         *scene.Point `json:"eye,omitempty"`
	Order       string       `json:"order,omitempty"`
	Width       int          `json:"width,omitempty"`
	Height      int          `json:"height,omitempty"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SceneChangedPayload struct {
	Version     int    `json:"version"`
	OperationID string `json:"operationId"`
	UserID      string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Viewing
	TypeEyeUpdate = "eye.update"
	TypeOrder     = "order"

	// Editing
	TypeOpSubmit     = "op.submit"
	TypeOpAck        = "op.ack"
	TypeOpNack       = "op.nack"
	TypeSceneChanged = "scene.changed"
)

// --- Operation Types ---

const (
	OpSegmentAdd    = "segment.add"
	OpSegmentRemove = "segment.remove"
	OpSegmentMove   = "segment.move"
)

// Operation is one edit to a scene's segment list.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`
	SegmentID string `json:"segmentId,omitempty"`

	// For segment.add
	Segment *scene.Segment `json:"segment,omitempty"`
	Index   *int           `json:"index,omitempty"`

	// For segment.move
	Start *scene.Point `json:"start,omitempty"`
	End   *scene.Point `json:"end,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	SegmentID       string `json:"segmentId,omitempty"`
	ServerSeq       int64  `json:"serverSeq"`
	Version         int    `json:"version"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
