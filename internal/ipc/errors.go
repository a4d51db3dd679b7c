package ipc

import "errors"

// ErrBindFailed is returned when the server cannot listen on its socket
// path (permission, stale lock, or a competing daemon already bound).
var ErrBindFailed = errors.New("ipc: bind failed")

// ErrPeerDisconnected is returned by client operations once the
// connection has been closed by the remote end or by Disconnect.
var ErrPeerDisconnected = errors.New("ipc: peer disconnected")

// ErrMalformedMessage is returned when a line of input does not decode
// as a JSON message, or a payload does not decode into the requested
// type. Missing fields and unrecognized types are not reported with it.
var ErrMalformedMessage = errors.New("ipc: malformed message")
