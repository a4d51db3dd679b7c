// Package control implements the devtrackd CLI's dispatch layer: it
// turns `status`/`pause`/`resume`/`force-trigger`/`skip-next`/
// `send-summary` into IPC requests against a separately-running daemon
// process, and formats the daemon's replies for a terminal.
package control

import (
	"fmt"

	"github.com/devtrackd/devtrackd/internal/ipc"
	"github.com/devtrackd/devtrackd/internal/paths"
)

// Client dispatches control actions to the running daemon over its IPC
// socket. Every method opens a short-lived connection; devtrackd itself
// never keeps one open between CLI invocations.
type Client struct {
	layout *paths.Layout
}

// NewClient builds a Client bound to a profile layout.
func NewClient(layout *paths.Layout) *Client {
	return &Client{layout: layout}
}

// Status asks the running daemon for a live scheduler/watcher snapshot
// without applying any action.
func (c *Client) Status() (ipc.ControlStatusData, error) {
	return c.sendAction("status")
}

// Pause requests the scheduler pause.
func (c *Client) Pause() (ipc.ControlStatusData, error) {
	return c.sendAction("pause")
}

// Resume requests the scheduler resume.
func (c *Client) Resume() (ipc.ControlStatusData, error) {
	return c.sendAction("resume")
}

// ForceTrigger requests an out-of-band immediate timer trigger.
func (c *Client) ForceTrigger() (ipc.ControlStatusData, error) {
	return c.sendAction("force_trigger")
}

// SkipNext requests the next scheduled trigger be skipped.
func (c *Client) SkipNext() (ipc.ControlStatusData, error) {
	return c.sendAction("skip_next")
}

// SendSummary asks the daemon to forward a prompt_request to whatever
// intelligence process is connected; it does not itself render a report.
func (c *Client) SendSummary() (ipc.ControlStatusData, error) {
	return c.sendAction("send_summary")
}

func (c *Client) sendAction(action string) (ipc.ControlStatusData, error) {
	client := ipc.NewClient(c.layout.SockPath, nil)
	if err := client.Connect(); err != nil {
		return ipc.ControlStatusData{}, ErrDaemonNotRunning
	}
	defer client.Disconnect()

	msg, err := ipc.NewControlCommand(action)
	if err != nil {
		return ipc.ControlStatusData{}, fmt.Errorf("control: build request: %w", err)
	}
	if err := client.SendMessage(msg); err != nil {
		return ipc.ControlStatusData{}, fmt.Errorf("control: send request: %w", err)
	}

	// send_summary also broadcasts a prompt_request on this same
	// connection; skip anything that isn't our targeted reply. Bounded
	// so a daemon that never replies can't hang the CLI forever.
	const maxUnrelatedReplies = 8
	for i := 0; i < maxUnrelatedReplies; i++ {
		reply, err := client.ReceiveMessage()
		if err != nil {
			return ipc.ControlStatusData{}, fmt.Errorf("control: read reply: %w", err)
		}
		if reply.Type != ipc.TypeControlStatus || reply.ID != msg.ID {
			continue
		}

		var status ipc.ControlStatusData
		if err := ipc.Decode(*reply, &status); err != nil {
			return ipc.ControlStatusData{}, fmt.Errorf("control: decode reply: %w", err)
		}
		return status, nil
	}

	return ipc.ControlStatusData{}, fmt.Errorf("control: no reply to %q after %d messages", action, maxUnrelatedReplies)
}
