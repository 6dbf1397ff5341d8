package server

import (
	"log"
	"sort"
	"strings"
	"time"
)

const (
	// PublicRoomId is the identifier of the unbounded default room.
	PublicRoomId = "public"

	idleRoomTimeout = time.Second * 5
)

// PrivateRoomID derives the deterministic room name for a 1:1 chat. Both
// participants compute the identical identifier without coordination.
func PrivateRoomID(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// Room is a named broadcast domain. All membership mutations and fan-out
// happen on the room's own goroutine; other goroutines communicate with
// it through the buffered channels.
type Room struct {
	id            string
	cs            *ChatServer
	joinChan      chan *Client
	leaveChan     chan *Client
	clientMsgChan chan *ClientMessage
	log           *log.Logger
	// killTimer unloads the room once the last member has left
	killTimer *time.Timer
	exit      chan struct{}
	done      chan struct{}
}

func newRoom(id string, cs *ChatServer) *Room {
	return &Room{
		id:            id,
		cs:            cs,
		joinChan:      make(chan *Client, 256),
		leaveChan:     make(chan *Client, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		log:           cs.log,
		exit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.id)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case c := <-r.joinChan:
			r.handleJoin(c)
		case c := <-r.leaveChan:
			r.handleLeave(c)
		case msg := <-r.clientMsgChan:
			r.handleMessage(msg)
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case <-r.exit:
			r.handleRoomExit()
			return
		}
	}
}

// handleJoin registers the connection and announces it: the system
// notice goes out first, then the new member gets its own roster copy,
// then the updated roster is broadcast to everyone.
func (r *Room) handleJoin(c *Client) {
	r.killTimer.Stop()

	if err := r.cs.registry.Register(c, r.id); err != nil {
		r.log.Println("register:", err)
		return
	}
	c.setRoom(r)

	r.broadcast(joinNotice(c.username))

	users := r.cs.registry.Usernames(r.id)
	c.queueMessage(userListMessage(users))
	r.broadcast(userListMessage(users))
}

// handleLeave deregisters the connection and announces the departure.
// The registry makes this idempotent: a second leave for the same
// connection produces no broadcast.
func (r *Room) handleLeave(c *Client) {
	if !r.cs.registry.Unregister(c) {
		r.log.Printf("client %s not found in room %q", c.sessionId, r.id)
		return
	}
	c.clearRoom()

	r.broadcast(leaveNotice(c.username))
	r.broadcast(userListMessage(r.cs.registry.Usernames(r.id)))

	if r.cs.registry.Count(r.id) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// handleMessage enriches a validated text/image message and fans it out
// to every member, the sender included.
func (r *Room) handleMessage(msg *ClientMessage) {
	r.broadcast(msg.enriched(msg.client.username))
	r.cs.stats.Incr(statMessagesRouted)
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.id)
	select {
	case r.cs.unloadRoomChan <- r.id:
	default:
		// unload queue full, try again on the next cycle
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit() {
	r.log.Printf("room %q is exiting", r.id)
	for _, c := range r.cs.registry.Members(r.id) {
		r.cs.registry.Unregister(c)
		c.clearRoom()
	}

	close(r.done)
}

func (r *Room) broadcast(msg *ServerMessage) {
	for _, c := range r.cs.registry.Members(r.id) {
		c.queueMessage(msg)
	}
}
