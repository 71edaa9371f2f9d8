package client

import (
	"sync"

	"github.com/daqtools/sqlbus"
	"github.com/daqtools/sqlbus/client/queue"
)

// sendTicket is a single-use, single-producer single-consumer handle
// carrying a send outcome from the pump back to the submitter. It is a
// buffered channel of capacity 1: the pump sets the value exactly once, the
// submitter receives it exactly once.
type sendTicket chan int

func newSendTicket() sendTicket { return make(chan int, 1) }

// responseTicket is the same shape as sendTicket, but carries the filled-in
// Query once its response arrives.
type responseTicket chan sqlbus.Query

func newResponseTicket() responseTicket { return make(chan sqlbus.Query, 1) }

type pendingSend struct {
	query  sqlbus.Query
	ticket sendTicket
}

// registry is the sole shared mutable state between caller goroutines and
// the pump. Its two structures are protected by independent mutexes so
// that send-queue operations never contend with response-table operations.
type registry struct {
	sendMu sync.Mutex
	sendQ  *queue.Queue[pendingSend]

	respMu sync.Mutex
	resp   map[uint32]responseTicket
}

func newRegistry() *registry {
	return &registry{
		sendQ: queue.New[pendingSend](16),
		resp:  make(map[uint32]responseTicket),
	}
}

// EnqueueSend pushes q onto the send queue and returns a ticket the caller
// can wait on for the send outcome.
func (r *registry) EnqueueSend(q sqlbus.Query) sendTicket {
	t := newSendTicket()
	r.sendMu.Lock()
	r.sendQ.Push(pendingSend{query: q, ticket: t})
	r.sendMu.Unlock()
	return t
}

// PopNextSend removes and returns the head of the send queue, for the pump
// only.
func (r *registry) PopNextSend() (sqlbus.Query, sendTicket, bool) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	ps, ok := r.sendQ.Pop()
	if !ok {
		return sqlbus.Query{}, nil, false
	}
	return ps.query, ps.ticket, true
}

// PeekNextSend returns the head of the send queue without removing it. The
// pump does not use it; it takes the head with PopNextSend.
func (r *registry) PeekNextSend() (sqlbus.Query, bool) {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	ps, ok := r.sendQ.Peek()
	return ps.query, ok
}

// RegisterResponse inserts a response ticket keyed by messageID. It must be
// called only once send has succeeded for that message ID.
func (r *registry) RegisterResponse(messageID uint32) responseTicket {
	t := newResponseTicket()
	r.respMu.Lock()
	r.resp[messageID] = t
	r.respMu.Unlock()
	return t
}

// CompleteResponse fulfills and removes the response ticket for messageID,
// if any is waiting. It reports false if no waiter was registered (the
// response is a duplicate, or its submitter already timed out), in which
// case the caller should log and drop the message.
func (r *registry) CompleteResponse(messageID uint32, q sqlbus.Query) bool {
	r.respMu.Lock()
	t, ok := r.resp[messageID]
	if ok {
		delete(r.resp, messageID)
	}
	r.respMu.Unlock()
	if !ok {
		return false
	}
	t <- q
	return true
}

// Abandon removes a response entry without fulfilling it. It is called by a
// submitter whose outer deadline fired before a response arrived, so a
// late response finds no waiter and is dropped rather than delivered to a
// goroutine that has already given up.
func (r *registry) Abandon(messageID uint32) {
	r.respMu.Lock()
	delete(r.resp, messageID)
	r.respMu.Unlock()
}
