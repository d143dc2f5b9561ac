package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects.
const (
	SubjectTranscriptSubmitted = "pear.transcript.submitted"
	SubjectSessionProcessed    = "pear.session.processed"
	SubjectRecordUpserted      = "pear.record.upserted"
	SubjectRecordClarified     = "pear.record.clarified"

	// WorkerQueue is the queue group shared by serve instances.
	WorkerQueue = "pear-workers"
)

// RecordEvent is published after every successful record write.
type RecordEvent struct {
	RecordID        string    `json:"record_id"`
	SessionID       string    `json:"transcript_session_id"`
	Domain          string    `json:"domain"`
	ParticipantName string    `json:"participant_name,omitempty"`
	Classification  string    `json:"classification"`
	SourceType      string    `json:"source_type"`
	Action          string    `json:"action"` // inserted, updated or clarified
	SupersedesID    string    `json:"supersedes_id,omitempty"`
	At              time.Time `json:"at"`
}

// SessionEvent is published once a transcript has been processed.
type SessionEvent struct {
	SessionID     string         `json:"transcript_session_id"`
	Filename      string         `json:"filename"`
	GroupName     string         `json:"group_name"`
	Status        string         `json:"status"`
	Records       map[string]int `json:"records"`
	FailedDomains []string       `json:"failed_domains,omitempty"`
	At            time.Time      `json:"at"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("pear"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// Publish marshals data as JSON and publishes it on subject.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// QueueSubscribe registers handler for subject in a queue group, so each
// message is handled by one member of the group.
func (c *Client) QueueSubscribe(subject, queue string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject, "queue", queue)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
	}
}
