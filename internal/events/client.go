package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Mar-Atn/NegotiationMaster-sub002/internal/analysis"
)

// NATS subjects the assessor speaks.
const (
	// SubjectTranscriptCompleted is published by the conversation-capture
	// service when a negotiation session ends.
	SubjectTranscriptCompleted = "negotiation.transcript.completed"
	// SubjectAssessmentCompleted announces a finished assessment to
	// downstream consumers (coaching UI, leaderboard, notifications).
	SubjectAssessmentCompleted = "negotiation.assessment.completed"
)

// TranscriptCompleted is the capture service's event payload.
type TranscriptCompleted struct {
	NegotiationID string               `json:"negotiation_id"`
	UserID        string               `json:"user_id"`
	ScenarioID    string               `json:"scenario_id"`
	Transcript    []analysis.Utterance `json:"transcript"`
}

// AssessmentCompleted is emitted after a performance record is stored and the
// user's progress has been folded in.
type AssessmentCompleted struct {
	NegotiationID      string    `json:"negotiation_id"`
	UserID             string    `json:"user_id"`
	OverallScore       float64   `json:"overall_score"`
	OverallRating      string    `json:"overall_rating"`
	AveragePerformance float64   `json:"average_performance"`
	TotalNegotiations  int       `json:"total_negotiations"`
	Milestones         int       `json:"milestones"`
	AssessedAt         time.Time `json:"assessed_at"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
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

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
