package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/varmalabs/voicegate/internal/verify"
	"github.com/varmalabs/voicegate/pkg/logger"
)

// Publisher fans a terminal result out to interested consumers. The
// in-memory ResultSlot is always wired; additional publishers are optional.
type Publisher interface {
	Publish(r verify.Result)
}

// NATSPublisher mirrors each terminal result onto a NATS subject so
// consumers outside the process can subscribe instead of polling. Readers
// apply the same freshness rule using the result timestamp.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	log     *logger.Logger
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	log := logger.GetLogger()
	log.Infof("Connected to NATS at %s (subject %s)", url, subject)
	return &NATSPublisher{conn: nc, subject: subject, log: log}, nil
}

func (p *NATSPublisher) Publish(r verify.Result) {
	data, err := json.Marshal(r)
	if err != nil {
		p.log.Errorf("Encoding result for NATS failed: %v", err)
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.log.Errorf("NATS publish failed: %v", err)
	}
}

func (p *NATSPublisher) Close() {
	p.conn.Close()
}
