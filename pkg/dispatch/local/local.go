// Package local is an in-process publisher. Each audience has its own
// broadcast server; consumers inside the same process (tooling, tests,
// future websocket bridges) subscribe to an audience and receive every
// event published to it.
package local

import (
	"sync"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/utils/broadcast"
)

// Event is one published feed item, tagged with its origin.
type Event struct {
	SessionID string
	Audience  model.Audience
	Type      model.EventType
	Payload   any
}

type Publisher struct {
	mu      sync.Mutex
	sources map[model.Audience]chan Event
	servers map[model.Audience]broadcast.BroadcastServer[Event]
}

func NewPublisher() *Publisher {
	return &Publisher{
		sources: make(map[model.Audience]chan Event),
		servers: make(map[model.Audience]broadcast.BroadcastServer[Event]),
	}
}

func (p *Publisher) Publish(
	sessionID string,
	audience model.Audience,
	event model.EventType,
	payload any,
) error {
	p.source(audience) <- Event{
		SessionID: sessionID,
		Audience:  audience,
		Type:      event,
		Payload:   payload,
	}
	return nil
}

// Subscribe attaches a consumer to an audience feed. The returned
// channel is closed when the subscription is cancelled or the publisher
// shuts down.
func (p *Publisher) Subscribe(audience model.Audience) <-chan Event {
	return p.server(audience).Subscribe()
}

func (p *Publisher) CancelSubscription(audience model.Audience, ch <-chan Event) {
	p.server(audience).CancelSubscription(ch)
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, srv := range p.servers {
		srv.Close()
	}
	p.servers = make(map[model.Audience]broadcast.BroadcastServer[Event])
	p.sources = make(map[model.Audience]chan Event)
}

func (p *Publisher) source(audience model.Audience) chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(audience)
	return p.sources[audience]
}

func (p *Publisher) server(audience model.Audience) broadcast.BroadcastServer[Event] {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ensure(audience)
	return p.servers[audience]
}

func (p *Publisher) ensure(audience model.Audience) {
	if _, ok := p.servers[audience]; ok {
		return
	}
	source := make(chan Event)
	p.sources[audience] = source
	p.servers[audience] = broadcast.NewBroadcastServer(string(audience), source)
}
