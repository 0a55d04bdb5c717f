package network

import (
	"encoding/json"
	"errors"
)

// Client -> server message types.
const (
	MsgTypeStart    = "start"
	MsgTypeProgress = "progress"
	MsgTypeFinish   = "finish"
)

// Server -> client message types. MsgTypeProgress is shared by both
// directions: clients report their own progress, the server answers with
// the full roster.
const (
	MsgTypeJoined         = "joined"
	MsgTypePlayerJoined   = "playerJoined"
	MsgTypePlayerLeft     = "playerLeft"
	MsgTypeCountdown      = "countdown"
	MsgTypeGameStart      = "gameStart"
	MsgTypePlayerFinished = "playerFinished"
	MsgTypeGameEnd        = "gameEnd"
	MsgTypeReset          = "reset"
)

var ErrMalformedMessage = errors.New("malformed message")

// Message is the envelope for every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Encode serializes a typed message once so it can be fanned out as-is.
func Encode(msgType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Data: raw})
}

// Decode parses an envelope. A frame without a type is malformed.
func Decode(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrMalformedMessage
	}
	if msg.Type == "" {
		return nil, ErrMalformedMessage
	}
	return &msg, nil
}

// Payload unmarshals the message data into v.
func (m *Message) Payload(v interface{}) error {
	if len(m.Data) == 0 {
		return ErrMalformedMessage
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return ErrMalformedMessage
	}
	return nil
}

// --- client payloads ---

type StartPayload struct {
	CodeSnippet string `json:"codeSnippet"`
}

type ProgressPayload struct {
	Progress   float64 `json:"progress"`
	WPM        float64 `json:"wpm"`
	Accuracy   float64 `json:"accuracy"`
	CharsTyped int     `json:"charsTyped"`
}

type FinishPayload struct {
	WPM        float64 `json:"wpm"`
	Accuracy   float64 `json:"accuracy"`
	CharsTyped int     `json:"charsTyped"`
}

// --- server payloads ---

// PlayerInfo is one entry of every players[] list.
type PlayerInfo struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	Progress float64 `json:"progress"`
	WPM      float64 `json:"wpm"`
	Finished bool    `json:"finished"`
	IsHost   bool    `json:"isHost"`
}

type JoinedPayload struct {
	IsHost  bool         `json:"isHost"`
	Players []PlayerInfo `json:"players"`
	Status  string       `json:"status"`
}

// PlayersPayload carries playerJoined, playerLeft, progress and reset.
type PlayersPayload struct {
	Players []PlayerInfo `json:"players"`
}

type CountdownPayload struct {
	Count int `json:"count"`
}

type GameStartPayload struct {
	CodeSnippet string `json:"codeSnippet"`
	StartTime   int64  `json:"startTime"`
}

type PlayerFinishedPayload struct {
	UserID   string  `json:"userId"`
	Username string  `json:"username"`
	WPM      float64 `json:"wpm"`
	Time     int64   `json:"time"`
}

type ResultEntry struct {
	UserID     string  `json:"userId"`
	Username   string  `json:"username"`
	WPM        float64 `json:"wpm"`
	Accuracy   float64 `json:"accuracy"`
	CharsTyped int     `json:"charsTyped"`
	Time       int64   `json:"time"`
}

type GameEndPayload struct {
	Results []ResultEntry `json:"results"`
}
