package client

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/daqtools/sqlbus"
	"github.com/daqtools/sqlbus/sqlbuslog"
	"github.com/daqtools/sqlbus/wire"
)

// Pump status codes returned via a sendTicket.
const (
	sendOK          = 0
	sendFailed      = -1
	sendNoListener  = -2
	sendPollErrored = -3
)

const shutdownCheckInterval = 10 * time.Millisecond

// pump is the single background worker that owns both sockets. It never
// shares them with any other goroutine: callers only ever touch the
// registry, and the pump is the only reader of that registry's send queue
// and the only one that fulfills entries in its response table.
func (c *Client) pump() {
	defer close(c.pumpDone)

	for {
		select {
		case <-c.shutdown:
			return
		case <-time.After(shutdownCheckInterval):
		}

		c.receiveOneResponse()
		c.sendOneQuery()
	}
}

// receiveOneResponse polls the dealer socket for inPollTimeout and, if a
// message is waiting, decodes it and routes it to its waiter.
func (c *Client) receiveOneResponse() {
	poller := zmq.NewPoller()
	poller.Add(c.sockets.dlr, zmq.POLLIN)

	polled, err := poller.Poll(c.cfg.InPollTimeout)
	if err != nil {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: poll dealer socket for read: %s", fmt.Errorf("%w: %w", sqlbus.ErrPollFailed, err))
		return
	}
	if len(polled) == 0 {
		return // nothing waiting
	}

	parts, err := wire.ReceiveFrames(c.sockets.dlr)
	if err != nil && len(parts) == 0 {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: receive response: %s", err)
		return
	}

	c.routeResponse(parts, err != nil)
}

// routeResponse decodes a response frame and delivers it to the waiting
// responseTicket. incomplete indicates the frame was missing parts
// (ReceiveFrames returned sqlbus.ErrIncomplete).
func (c *Client) routeResponse(parts [][]byte, incomplete bool) {
	if len(parts) == 0 {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: received empty response")
		return
	}

	messageID, ok := wire.DecodeUint32(parts[0])
	if !ok {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: response message id part too short")
		return
	}

	var q sqlbus.Query
	q.MessageID = messageID

	if incomplete || len(parts) < 2 {
		q.Success = false
		q.Err = "Received incomplete zmq response"
		sqlbuslog.Printf(sqlbuslog.WARNINGS, "pump: %s (message id %d, %d parts)", q.Err, messageID, len(parts))
	} else {
		successCode, _ := wire.DecodeUint32(parts[1])
		q.Success = successCode != 0
		for _, row := range parts[2:] {
			q.Rows = append(q.Rows, wire.DecodeString(row))
		}
	}

	if !c.registry.CompleteResponse(messageID, q) {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: unknown message id %d with no waiting client", messageID)
	}
}

// sendOneQuery pops the head of the send queue (if any), transmits it on
// the socket appropriate to its type, and reports the outcome through its
// sendTicket.
func (c *Client) sendOneQuery() {
	q, ticket, ok := c.registry.PopNextSend()
	if !ok {
		return // nothing to send
	}

	sock := c.sockets.dlr
	if q.Type == sqlbus.Write {
		sock = c.sockets.pub
	}

	code := c.pollAndSend(sock, q)
	ticket <- code
}

// pollAndSend polls sock for writability, then transmits q's wire frames on
// success. It returns one of the pump status codes defined above.
func (c *Client) pollAndSend(sock *zmq.Socket, q sqlbus.Query) int {
	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLOUT)

	polled, err := poller.Poll(c.cfg.OutPollTimeout)
	if err != nil {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: poll %s socket for write: %s", q.Type, fmt.Errorf("%w: %w", sqlbus.ErrPollFailed, err))
		return sendPollErrored
	}
	if len(polled) == 0 {
		sqlbuslog.Printf(sqlbuslog.DEBUG, "pump: no listener on %s socket for message %d", q.Type, q.MessageID)
		return sendNoListener
	}

	var err2 error
	if q.Type == sqlbus.Write {
		err2 = wire.SendFrames(sock,
			wire.StringPart(c.identity),
			wire.Uint32Part(q.MessageID),
			wire.StringPart(q.Database),
			wire.StringPart(q.Statement),
		)
	} else {
		err2 = wire.SendFrames(sock,
			wire.Uint32Part(q.MessageID),
			wire.StringPart(q.Database),
			wire.StringPart(q.Statement),
		)
	}
	if err2 != nil {
		sqlbuslog.Printf(sqlbuslog.ERRORS, "pump: send message %d: %s", q.MessageID, err2)
		return sendFailed
	}

	sqlbuslog.Printf(sqlbuslog.DEBUG, "pump: sent %s query %d", q.Type, q.MessageID)
	return sendOK
}
