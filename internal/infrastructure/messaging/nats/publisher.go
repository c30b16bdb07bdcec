package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/mission-control/pkg/logger"
)

// NATSPublisher publishes evaluation events to NATS JetStream.
// Subjects are namespaced with a prefix, e.g. "mission_control.alert.state_changed".
type NATSPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	prefix string
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and makes sure the event stream exists.
func NewNATSPublisher(natsURL, subjectPrefix string, log *logger.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("mission-control"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	p := &NATSPublisher{
		nc:     nc,
		js:     js,
		prefix: strings.TrimSuffix(subjectPrefix, "."),
		logger: log,
	}

	if err := p.ensureStream(); err != nil {
		// Stream может быть создан администратором с другими параметрами
		log.Warn("Failed to ensure NATS stream", "error", err.Error())
	}

	log.Info("Connected to NATS", "url", natsURL, "prefix", p.prefix)

	return p, nil
}

func (p *NATSPublisher) ensureStream() error {
	if p.prefix == "" {
		return nil
	}

	name := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(p.prefix))
	if _, err := p.js.StreamInfo(name); err == nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{p.prefix + ".>"},
		MaxAge:   7 * 24 * time.Hour,
		Storage:  nats.FileStorage,
	})
	return err
}

// Subject returns the fully qualified subject for an event name.
func (p *NATSPublisher) Subject(name string) string {
	return qualify(p.prefix, name)
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// PublishEvent publishes an event as JSON (async, fire-and-forget).
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	full := p.Subject(subject)
	if _, err := p.js.PublishAsync(full, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", full,
		"size", len(data),
	)

	return nil
}

// Close drains pending async publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}

	p.logger.Info("Closing NATS connection")

	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		p.logger.Warn("Timed out waiting for pending NATS publishes")
	}

	p.nc.Close()
	return nil
}
