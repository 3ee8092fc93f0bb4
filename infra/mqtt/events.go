package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/powerplan/core/metrics"
	"github.com/kilianp07/powerplan/core/monitoring"
	"github.com/kilianp07/powerplan/infra/logger"
)

type plantMessage struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	PowerMW    float64 `json:"p"`
	CostPerMWh float64 `json:"cost_per_mwh"`
}

type eventMessage struct {
	PlanID     string         `json:"plan_id"`
	LoadMW     float64        `json:"load"`
	Outcome    string         `json:"outcome"`
	Error      string         `json:"error,omitempty"`
	Plants     []plantMessage `json:"plants,omitempty"`
	TotalCost  float64        `json:"total_cost"`
	DurationMS float64        `json:"duration_ms"`
	Timestamp  int64          `json:"timestamp"`
}

func newEventMessage(ev metrics.PlanEvent) eventMessage {
	m := eventMessage{
		PlanID:     ev.PlanID,
		LoadMW:     ev.LoadMW,
		Outcome:    ev.Outcome,
		Error:      ev.Error,
		TotalCost:  ev.TotalCost,
		DurationMS: float64(ev.Duration) / float64(time.Millisecond),
		Timestamp:  ev.Time.UnixMilli(),
	}
	for _, p := range ev.Plants {
		m.Plants = append(m.Plants, plantMessage(p))
	}
	return m
}

// EventPublisher forwards plan events to the events topic.
type EventPublisher struct {
	client *Client
	topic  string
	qos    byte
	logger logger.Logger
}

// NewEventPublisher creates a publisher for the configured events topic.
func NewEventPublisher(c *Client) *EventPublisher {
	return &EventPublisher{
		client: c,
		topic:  c.cfg.EventsTopic,
		qos:    c.cfg.qos(QoSEvents),
		logger: logger.New("mqtt_events"),
	}
}

// Run publishes every event received on events until ctx is done or the
// channel is closed.
func (p *EventPublisher) Run(ctx context.Context, events <-chan metrics.PlanEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := p.publish(ctx, ev); err != nil {
				p.logger.Errorf("forward plan event %s: %v", ev.PlanID, err)
				monitoring.CaptureException(err, map[string]string{"component": "mqtt_events", "plan_id": ev.PlanID})
			}
		}
	}
}

func (p *EventPublisher) publish(ctx context.Context, ev metrics.PlanEvent) error {
	b, err := json.Marshal(newEventMessage(ev))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.topic, p.qos, b)
}
