package server

import (
	"context"
	"log"
	"sync"

	"github.com/charlachat/charla/internal/stats"
)

const (
	statActiveConnections = "ActiveConnections"
	statActiveRooms       = "ActiveRooms"
	statMessagesRouted    = "MessagesRouted"
	statMalformedMessages = "MalformedMessages"
)

type joinRequest struct {
	client *Client
	roomId string
}

// ChatServer owns the room table and the global connection set. Rooms
// are created lazily on first join and unloaded once they sit empty.
type ChatServer struct {
	log            *log.Logger
	stats          stats.StatsProvider
	registry       *Registry
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	rooms          map[string]*Room
	joinChan       chan *joinRequest
	registerChan   chan *Client
	deregisterChan chan *Client
	unloadRoomChan chan string
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, sp stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		stats:          sp,
		registry:       NewRegistry(),
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		joinChan:       make(chan *joinRequest, 256),
		registerChan:   make(chan *Client, 256),
		deregisterChan: make(chan *Client, 256),
		unloadRoomChan: make(chan string, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	sp.RegisterMetric(statActiveConnections)
	sp.RegisterMetric(statActiveRooms)
	sp.RegisterMetric(statMessagesRouted)
	sp.RegisterMetric(statMalformedMessages)

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case req := <-cs.joinChan:
			cs.handleJoinRequest(req)
		case client := <-cs.registerChan:
			cs.log.Printf("adding connection %s from %q", client.sessionId, client.username)
			cs.addClient(client)
		case client := <-cs.deregisterChan:
			cs.log.Printf("removing connection %s from %q", client.sessionId, client.username)
			cs.removeClient(client)
		case id := <-cs.unloadRoomChan:
			cs.unloadRoom(id)
		case <-cs.stop:
			cs.log.Println("shutting down rooms")
			for _, r := range cs.rooms {
				close(r.exit)
				<-r.done
			}

			close(cs.done)
			return
		}
	}
}

// Connect hands a freshly upgraded connection to the chat core: the
// connection is tracked globally and queued for its room, which is
// created on first reference.
func (cs *ChatServer) Connect(c *Client, roomId string) {
	cs.registerChan <- c
	cs.joinChan <- &joinRequest{client: c, roomId: roomId}
}

func (cs *ChatServer) handleJoinRequest(req *joinRequest) {
	room, ok := cs.rooms[req.roomId]
	if !ok {
		room = newRoom(req.roomId, cs)
		cs.rooms[room.id] = room
		go room.start()
		cs.stats.Incr(statActiveRooms)
	}

	select {
	case room.joinChan <- req.client:
	default:
		cs.log.Printf("join channel full on room %q", room.id)
	}
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
	cs.stats.Incr(statActiveConnections)
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr(statActiveConnections)
	}
}

func (cs *ChatServer) unloadRoom(roomId string) {
	r, ok := cs.rooms[roomId]
	if !ok {
		return
	}

	// a join may have slipped in after the idle timer fired
	if cs.registry.Count(roomId) != 0 {
		return
	}

	cs.log.Printf("removing room %q", r.id)
	delete(cs.rooms, roomId)
	close(r.exit)
	<-r.done
	cs.stats.Decr(statActiveRooms)
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
