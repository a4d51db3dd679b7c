// Package ipc implements the newline-delimited JSON message bus between
// the daemon and its control/integration peers.
package ipc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type enumerates the wire message types exchanged over the bus.
type Type string

const (
	TypeCommitTrigger  Type = "commit_trigger"
	TypeTimerTrigger   Type = "timer_trigger"
	TypeStatusQuery    Type = "status_query"
	TypeConfigUpdate   Type = "config_update"
	TypeShutdown       Type = "shutdown"
	TypeResponse       Type = "response"
	TypeTaskUpdate     Type = "task_update"
	TypeError          Type = "error"
	TypeAck            Type = "ack"
	TypePromptRequest  Type = "prompt_request"

	// TypeControlCommand and TypeControlStatus extend the enumerated
	// message set; adding new types is backward compatible since handlers
	// ignore unknown ones. They let the control surface (a separate CLI
	// process) ask the running daemon for live scheduler state and
	// request pause, resume, force-trigger, skip-next and send-summary without it
	// having any in-process access to the daemon's scheduler.
	TypeControlCommand Type = "control_command"
	TypeControlStatus  Type = "control_status"
)

// Message is the wire envelope. Unlike the original source's
// map[string]interface{} Data field, Data is kept as raw JSON and
// decoded into a typed payload only at the point a handler needs it
// (see Decode), so a message can be routed purely by Type without
// touching its payload shape.
type Message struct {
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error,omitempty"`
}

// CommitTriggerData is the commit_trigger payload.
type CommitTriggerData struct {
	RepoPath      string   `json:"repo_path"`
	CommitHash    string   `json:"commit_hash"`
	CommitMessage string   `json:"commit_message"`
	Author        string   `json:"author"`
	Timestamp     string   `json:"timestamp"`
	FilesChanged  []string `json:"files_changed"`
	Branch        string   `json:"branch"`
}

// TimerTriggerData is the timer_trigger payload.
type TimerTriggerData struct {
	Timestamp    string `json:"timestamp"`
	IntervalMins int    `json:"interval_mins"`
	TriggerCount int    `json:"trigger_count"`
}

// ConfigUpdateData is the config_update payload: the keys that changed
// and their new values.
type ConfigUpdateData struct {
	Changed map[string]string `json:"changed"`
}

// TaskUpdateData is the client->server task_update payload.
type TaskUpdateData struct {
	Project     string `json:"project"`
	TicketID    string `json:"ticket_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	TimeSpent   string `json:"time_spent"`
	Synced      bool   `json:"synced"`
}

// ResponseData is the client->server response payload: a peer's
// structured reply to a trigger, persisted as a store.Response.
type ResponseData struct {
	TriggerID   int64  `json:"trigger_id"`
	Project     string `json:"project"`
	TicketID    string `json:"ticket_id"`
	Description string `json:"description"`
	TimeSpent   string `json:"time_spent"`
	Status      string `json:"status"`
	RawInput    string `json:"raw_input"`
}

// PromptRequestData is an application-defined payload asking a connected
// peer (the intelligence process) to produce a report; it carries no
// required fields since report rendering itself is out of scope here.
type PromptRequestData map[string]any

// AckData acknowledges receipt of a server-originated message.
type AckData struct {
	AcknowledgedID string `json:"acknowledged_id"`
}

// ControlCommandData is the control surface's client->server request.
// Action is one of "status", "pause", "resume", "force_trigger", "skip_next",
// "send_summary".
type ControlCommandData struct {
	Action string `json:"action"`
}

// ControlStatusData is the daemon's reply to a control_command: a
// snapshot of scheduler and watcher state taken after the requested
// action (if any) has been applied.
type ControlStatusData struct {
	Action          string    `json:"action"`
	IsPaused        bool      `json:"is_paused"`
	TriggerCount    int       `json:"trigger_count"`
	LastTrigger     time.Time `json:"last_trigger"`
	NextTrigger     time.Time `json:"next_trigger"`
	IntervalMinutes int       `json:"interval_minutes"`
	TimeUntilNext   string    `json:"time_until_next"`
	WorkHoursOnly   bool      `json:"work_hours_only"`
	IsWorkHours     bool      `json:"is_work_hours"`
	NextWorkStart   time.Time `json:"next_work_start"`
	WatchedRepos    int       `json:"watched_repos"`
}

func newID() string {
	return uuid.NewString()
}

func encode(t Type, id string, payload any) (Message, error) {
	if id == "" {
		id = newID()
	}

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("ipc: marshal %s payload: %w", t, err)
		}
		raw = data
	} else {
		raw = json.RawMessage("{}")
	}

	return Message{
		Type:      t,
		Timestamp: time.Now(),
		ID:        id,
		Data:      raw,
	}, nil
}

// NewCommitTrigger builds a server-originated commit_trigger message.
func NewCommitTrigger(data CommitTriggerData) (Message, error) {
	return encode(TypeCommitTrigger, "", data)
}

// NewTimerTrigger builds a server-originated timer_trigger message.
func NewTimerTrigger(data TimerTriggerData) (Message, error) {
	return encode(TypeTimerTrigger, "", data)
}

// NewConfigUpdate builds a server-originated config_update message.
func NewConfigUpdate(data ConfigUpdateData) (Message, error) {
	return encode(TypeConfigUpdate, "", data)
}

// NewStatusQuery builds a server-originated status_query message (empty payload).
func NewStatusQuery() (Message, error) {
	return encode(TypeStatusQuery, "", nil)
}

// NewShutdown builds a server-originated shutdown message (empty payload).
func NewShutdown() (Message, error) {
	return encode(TypeShutdown, "", nil)
}

// NewTaskUpdate builds a client-originated task_update message.
func NewTaskUpdate(data TaskUpdateData) (Message, error) {
	return encode(TypeTaskUpdate, "", data)
}

// NewResponse builds a client-originated response message, reusing the
// request's id so the server can correlate it.
func NewResponse(requestID string, data ResponseData) (Message, error) {
	return encode(TypeResponse, requestID, data)
}

// NewError builds an error message carrying no payload.
func NewError(requestID string, errMsg string) (Message, error) {
	msg, err := encode(TypeError, requestID, nil)
	if err != nil {
		return Message{}, err
	}
	msg.Error = errMsg
	return msg, nil
}

// NewAck builds an ack message for a received message id.
func NewAck(requestID string, acknowledgedID string) (Message, error) {
	return encode(TypeAck, requestID, AckData{AcknowledgedID: acknowledgedID})
}

// NewPromptRequest builds a server-originated prompt_request message,
// dispatched to the intelligence process on the control surface's
// send-summary command.
func NewPromptRequest(data PromptRequestData) (Message, error) {
	return encode(TypePromptRequest, "", data)
}

// NewControlCommand builds a client-originated control_command message.
func NewControlCommand(action string) (Message, error) {
	return encode(TypeControlCommand, "", ControlCommandData{Action: action})
}

// NewControlStatus builds a server-originated reply to a control_command,
// reusing the request's id so the client can correlate it.
func NewControlStatus(requestID string, data ControlStatusData) (Message, error) {
	return encode(TypeControlStatus, requestID, data)
}

// Decode unmarshals m.Data into dst, wrapping failures as ErrMalformedMessage.
func Decode[T any](m Message, dst *T) error {
	if err := json.Unmarshal(m.Data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}
