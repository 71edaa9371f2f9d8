package sqlbus

import "errors"

// Transport and frame errors surfaced by the wire codec and the pump.
var (
	ErrSocketClosed = errors.New("socket closed")
	ErrIncomplete   = errors.New("incomplete zmq response")
	ErrNoListener   = errors.New("no listener")
	ErrSendFailed   = errors.New("send failed")
	ErrPollFailed   = errors.New("poll failed")
)
