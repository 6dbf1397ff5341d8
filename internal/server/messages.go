package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	TypeSystem   = "system"
	TypeUserList = "user_list"
	TypeText     = "text"
	TypeImage    = "image"
)

// ClientMessage is an inbound payload after parsing. Client-supplied
// id/timestamp values are discarded during enrichment.
type ClientMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Url       string `json:"url,omitempty"`
	Id        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	client    *Client
}

// ServerMessage is the outbound wire record, a closed union on Type.
type ServerMessage struct {
	Type      string   `json:"type"`
	Message   string   `json:"message,omitempty"`
	Users     []string `json:"users,omitempty"`
	Text      string   `json:"text,omitempty"`
	Url       string   `json:"url,omitempty"`
	User      string   `json:"user,omitempty"`
	Id        string   `json:"id,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

type MalformedMessageError struct {
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

// parseClientMessage decodes and validates an inbound payload. Only the
// text and image variants may originate from a client; system and
// user_list records are server-generated.
func parseClientMessage(raw []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &MalformedMessageError{Reason: err.Error()}
	}

	switch msg.Type {
	case TypeText:
		if msg.Text == "" {
			return nil, &MalformedMessageError{Reason: "text message missing text"}
		}
	case TypeImage:
		if msg.Url == "" {
			return nil, &MalformedMessageError{Reason: "image message missing url"}
		}
	default:
		return nil, &MalformedMessageError{Reason: fmt.Sprintf("unknown type %q", msg.Type)}
	}

	return &msg, nil
}

// enriched produces the broadcastable record for a text/image message:
// sender username attached, server-generated id and timestamp overwriting
// whatever the client supplied.
func (m *ClientMessage) enriched(username string) *ServerMessage {
	return &ServerMessage{
		Type:      m.Type,
		Text:      m.Text,
		Url:       m.Url,
		User:      username,
		Id:        uuid.NewString(),
		Timestamp: NowMillis(),
	}
}

func systemMessage(text string) *ServerMessage {
	return &ServerMessage{
		Type:    TypeSystem,
		Message: text,
	}
}

func userListMessage(users []string) *ServerMessage {
	return &ServerMessage{
		Type:  TypeUserList,
		Users: users,
	}
}

func joinNotice(username string) *ServerMessage {
	return systemMessage(fmt.Sprintf("%s se ha unido.", username))
}

func leaveNotice(username string) *ServerMessage {
	return systemMessage(fmt.Sprintf("%s se ha ido.", username))
}

func NowMillis() int64 {
	return time.Now().UnixMilli()
}
