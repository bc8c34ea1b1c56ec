package websocket

import (
	"context"

	"github.com/rs/zerolog/log"
)

// GlobalTopic reaches every connected client.
const GlobalTopic = "global"

type envelope struct {
	topic  string
	client *Client
	data   []byte
}

type subscription struct {
	client *Client
	topic  string
}

// Hub maintains the set of active clients and routes published messages to
// the clients subscribed to their topic. All maps are owned by Run.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	subscribe chan subscription
	broadcast chan envelope
	direct    chan envelope
	done      chan struct{}

	// A map of topics to the set of clients subscribed to it.
	subscriptions map[string]map[*Client]bool
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Register:      make(chan *Client),
		Unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		broadcast:     make(chan envelope, 256),
		direct:        make(chan envelope, 64),
		done:          make(chan struct{}),
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is
// cancelled, closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			log.Info().Msg("Websocket hub stopped")
			return
		case client := <-h.Register:
			h.clients[client] = true
			for _, topic := range client.Topics {
				h.addSubscription(client, topic)
			}
			log.Info().Int("total_clients", len(h.clients)).Str("user_id", client.UserID).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case sub := <-h.subscribe:
			if h.clients[sub.client] {
				h.addSubscription(sub.client, sub.topic)
			}
		case msg := <-h.broadcast:
			h.deliver(msg)
		case msg := <-h.direct:
			if h.clients[msg.client] {
				select {
				case msg.client.Send <- msg.data:
				default:
					h.drop(msg.client)
				}
			}
		}
	}
}

func (h *Hub) deliver(msg envelope) {
	targets := h.clients
	if msg.topic != GlobalTopic {
		targets = h.subscriptions[msg.topic]
	}
	for client := range targets {
		select {
		case client.Send <- msg.data:
		default:
			// Slow consumer.
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeSubscription(client)
	close(client.Send)
}

// Publish sends action and payload to every client subscribed to topic. It
// implements the services' notifier and never blocks once the hub stopped.
func (h *Hub) Publish(topic, action string, payload interface{}) {
	data := Message{Action: action, Topic: topic, Payload: payload}.Encode()
	if data == nil {
		return
	}
	select {
	case h.broadcast <- envelope{topic: topic, data: data}:
	case <-h.done:
	}
}

// SendTo queues data for a single client.
func (h *Hub) SendTo(client *Client, data []byte) {
	select {
	case h.direct <- envelope{client: client, data: data}:
	case <-h.done:
	}
}

// Subscribe adds a connected client to topic.
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- subscription{client: client, topic: topic}:
	case <-h.done:
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) addSubscription(client *Client, topic string) {
	if h.subscriptions[topic] == nil {
		h.subscriptions[topic] = make(map[*Client]bool)
	}
	h.subscriptions[topic][client] = true
}

func (h *Hub) removeSubscription(client *Client) {
	for topic, subs := range h.subscriptions {
		if _, ok := subs[client]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, topic)
			}
		}
	}
}
