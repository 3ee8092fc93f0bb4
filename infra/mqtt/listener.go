package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/powerplan/api/productionplan"
	"github.com/kilianp07/powerplan/core/dispatch"
	"github.com/kilianp07/powerplan/core/monitoring"
	"github.com/kilianp07/powerplan/infra/logger"
)

// Reply is published on <response_prefix>/<request_id or plan_id>.
type Reply struct {
	PlanID      string                `json:"plan_id,omitempty"`
	RequestID   string                `json:"request_id,omitempty"`
	Allocations []dispatch.Allocation `json:"allocations,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Listener answers plan requests received on the request topic.
type Listener struct {
	client     *Client
	planner    productionplan.Planner
	defaultCO2 float64
	topic      string
	prefix     string
	qosIn      byte
	qosOut     byte
	timeout    time.Duration
	logger     logger.Logger
}

// NewListener creates a listener using the topics of the client configuration.
func NewListener(c *Client, planner productionplan.Planner, defaultCO2 float64) *Listener {
	return &Listener{
		client:     c,
		planner:    planner,
		defaultCO2: defaultCO2,
		topic:      c.cfg.RequestTopic,
		prefix:     strings.TrimSuffix(c.cfg.ResponsePrefix, "/"),
		qosIn:      c.cfg.qos(QoSRequest),
		qosOut:     c.cfg.qos(QoSResponse),
		timeout:    10 * time.Second,
		logger:     logger.New("mqtt_listener"),
	}
}

// Start subscribes to the request topic.
func (l *Listener) Start() error {
	return l.client.Subscribe(l.topic, l.qosIn, l.onRequest)
}

func (l *Listener) onRequest(_ paho.Client, msg paho.Message) {
	defer monitoring.Recover()
	reply := l.handle(msg.Payload())
	key := reply.RequestID
	if key == "" {
		key = reply.PlanID
	}
	if key == "" {
		l.logger.Warnf("dropping uncorrelated request on %s: %s", msg.Topic(), reply.Error)
		return
	}
	b, err := json.Marshal(reply)
	if err != nil {
		l.logger.Errorf("encode reply: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.client.Publish(ctx, l.prefix+"/"+key, l.qosOut, b); err != nil {
		l.logger.Errorf("reply %s: %v", key, err)
		monitoring.CaptureException(err, map[string]string{"component": "mqtt_listener", "reply_to": key})
	}
}

func (l *Listener) handle(payload []byte) Reply {
	req, err := productionplan.DecodeBytes(payload, l.defaultCO2)
	if err != nil {
		return Reply{RequestID: requestIDOf(payload), Error: err.Error()}
	}
	res, err := l.planner.Plan(req.Load)
	reply := Reply{PlanID: res.ID, RequestID: req.RequestID}
	if err != nil {
		_, reply.Error = productionplan.StatusOf(err)
		return reply
	}
	reply.Allocations = res.Plan.Allocations
	return reply
}

// requestIDOf extracts request_id from a payload that failed validation.
func requestIDOf(payload []byte) string {
	var probe struct {
		RequestID string `json:"request_id"`
	}
	_ = json.Unmarshal(payload, &probe)
	return probe.RequestID
}
