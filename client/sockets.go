package client

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
)

// socketPair owns the two sockets the pump reads and writes: a PUB socket
// for broadcasting write queries, and a DEALER socket for round-robin read
// dispatch and for receiving every response. Only the pump goroutine may
// call Send/Recv on either socket once the client has started.
type socketPair struct {
	pub *zmq.Socket
	dlr *zmq.Socket

	pubPort int
	dlrPort int
}

func newSocketPair(ctx *zmq.Context, identity string, pubPort, dlrPort int, pubTimeout, dlrTimeout time.Duration) (*socketPair, error) {
	pub, err := ctx.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("client: create pub socket: %w", err)
	}
	if err := pub.SetSndtimeo(pubTimeout); err != nil {
		pub.Close()
		return nil, fmt.Errorf("client: set pub sndtimeo: %w", err)
	}
	if err := pub.Bind(fmt.Sprintf("tcp://*:%d", pubPort)); err != nil {
		pub.Close()
		return nil, fmt.Errorf("client: bind pub socket to port %d: %w", pubPort, err)
	}

	dlr, err := ctx.NewSocket(zmq.DEALER)
	if err != nil {
		pub.Close()
		return nil, fmt.Errorf("client: create dealer socket: %w", err)
	}
	if err := dlr.SetSndtimeo(dlrTimeout); err != nil {
		pub.Close()
		dlr.Close()
		return nil, fmt.Errorf("client: set dealer sndtimeo: %w", err)
	}
	if err := dlr.SetRcvtimeo(dlrTimeout); err != nil {
		pub.Close()
		dlr.Close()
		return nil, fmt.Errorf("client: set dealer rcvtimeo: %w", err)
	}
	if err := dlr.SetIdentity(identity); err != nil {
		pub.Close()
		dlr.Close()
		return nil, fmt.Errorf("client: set dealer identity: %w", err)
	}
	if err := dlr.Bind(fmt.Sprintf("tcp://*:%d", dlrPort)); err != nil {
		pub.Close()
		dlr.Close()
		return nil, fmt.Errorf("client: bind dealer socket to port %d: %w", dlrPort, err)
	}

	return &socketPair{pub: pub, dlr: dlr, pubPort: pubPort, dlrPort: dlrPort}, nil
}

func (s *socketPair) close() {
	if s == nil {
		return
	}
	if s.pub != nil {
		s.pub.Close()
	}
	if s.dlr != nil {
		s.dlr.Close()
	}
}
