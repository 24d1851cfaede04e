// Package natspub publishes audience feeds as NATS subjects of the
// form live.<audience>.<sessionId>.<event>. Payloads are JSON.
package natspub

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/controlbox-racing/controlbox-service-manager-go/pkg/model"
)

type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Subject returns the feed subject for one (audience, session, event).
func Subject(sessionID string, audience model.Audience, event model.EventType) string {
	return fmt.Sprintf("live.%s.%s.%s", audience, sessionID, event)
}

func (p *Publisher) Publish(
	sessionID string,
	audience model.Audience,
	event model.EventType,
	payload any,
) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(sessionID, audience, event), data)
}
