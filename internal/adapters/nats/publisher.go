package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gfreitas/placepin/internal/core/domain"
	"github.com/gfreitas/placepin/internal/core/ports"
)

// Subjects carried on the PLACES stream. The WebSocket relay subscribes to
// places.> and forwards everything verbatim.
const (
	SubjectPrefix        = "places"
	SubjectImport        = "places.import"
	SubjectPersistFailed = "places.persist_failed"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to NATS, enables JetStream, and ensures the PLACES
// stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "PLACES",
		Subjects:  []string{"places.>"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// changeEvent is the wire shape for collection mutations.
type changeEvent struct {
	Op        string            `json:"op"`
	Location  *domain.Location  `json:"location,omitempty"`
	ID        string            `json:"id,omitempty"`
	Locations []domain.Location `json:"locations,omitempty"`
	At        time.Time         `json:"at"`
}

// PublishChange pushes one committed collection mutation to
// places.location.<op>.
func (p *Publisher) PublishChange(ctx context.Context, ch domain.Change) error {
	ev := changeEvent{Op: string(ch.Kind), ID: ch.ID, At: time.Now().UTC()}
	switch ch.Kind {
	case domain.ChangeAdd, domain.ChangeUpdate:
		loc := ch.Location
		ev.Location = &loc
	case domain.ChangeImport, domain.ChangeSet:
		ev.Locations = ch.Locations
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPrefix+".location."+string(ch.Kind), data)
	return err
}

// PublishImport summarizes a completed import batch.
func (p *Publisher) PublishImport(ctx context.Context, mode domain.ImportMode, report domain.ImportReport) error {
	data, err := json.Marshal(struct {
		Mode   domain.ImportMode   `json:"mode"`
		Report domain.ImportReport `json:"report"`
		At     time.Time           `json:"at"`
	}{mode, report, time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectImport+"."+string(mode), data)
	return err
}

// PublishPersistFailure surfaces a swallowed write-through failure.
func (p *Publisher) PublishPersistFailure(ctx context.Context, op string, cause error) error {
	data, err := json.Marshal(struct {
		Op    string    `json:"op"`
		Error string    `json:"error"`
		At    time.Time `json:"at"`
	}{op, cause.Error(), time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectPersistFailed, data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (the WebSocket
// relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
