package mqtt

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/powerplan/core/dispatch"
	"github.com/kilianp07/powerplan/core/model"
	"github.com/kilianp07/powerplan/infra/logger"
)

func newTestListener(t *testing.T, mc *mockClient) *Listener {
	t.Helper()
	useMock(t, mc)
	cli, err := NewClient(Config{
		Broker:         "tcp://localhost:1883",
		RequestTopic:   "powerplan/request",
		ResponsePrefix: "powerplan/response/",
		QoS:            map[string]byte{QoSRequest: 1, QoSResponse: 1},
		BackoffMS:      1,
	})
	require.NoError(t, err)
	mgr, err := dispatch.NewPlanManager(dispatch.NewPlanner(dispatch.Config{}), nil, nil, logger.NopLogger{})
	require.NoError(t, err)
	l := NewListener(cli, mgr, dispatch.DefaultCO2Price)
	require.NoError(t, l.Start())
	return l
}

func decodeReply(t *testing.T, p published) Reply {
	t.Helper()
	var r Reply
	require.NoError(t, json.Unmarshal(p.payload, &r))
	return r
}

func TestListener_RepliesWithPlan(t *testing.T) {
	mc := &mockClient{}
	newTestListener(t, mc)

	body, err := os.ReadFile("../../api/productionplan/testdata/payload.json")
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	raw["request_id"] = "req-1"
	body, err = json.Marshal(raw)
	require.NoError(t, err)

	mc.deliver("powerplan/request", body)

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "powerplan/response/req-1", msgs[0].topic)
	assert.Equal(t, byte(1), msgs[0].qos)
	r := decodeReply(t, msgs[0])
	assert.Equal(t, "req-1", r.RequestID)
	assert.NotEmpty(t, r.PlanID)
	assert.Empty(t, r.Error)
	require.Len(t, r.Allocations, 6)
	assert.Equal(t, dispatch.Allocation{Name: "gasfiredbig2", Power: model.Tenths(3384)}, r.Allocations[1])
	assert.Equal(t, dispatch.Allocation{Name: "windpark2", Power: model.Tenths(216)}, r.Allocations[5])
}

func TestListener_InfeasibleUsesPlanID(t *testing.T) {
	mc := &mockClient{}
	newTestListener(t, mc)

	mc.deliver("powerplan/request", []byte(`{"load":50,
		"fuels":{"gas(euro/MWh)":1,"kerosine(euro/MWh)":1,"wind(%)":100},
		"powerplants":[{"name":"w","type":"windturbine","pmax":150}]}`))

	msgs := mc.messages()
	require.Len(t, msgs, 1)
	r := decodeReply(t, msgs[0])
	assert.Equal(t, "powerplan/response/"+r.PlanID, msgs[0].topic)
	assert.Equal(t, "Unable to match the exact load", r.Error)
	assert.Empty(t, r.Allocations)
}

func TestListener_MalformedRequest(t *testing.T) {
	mc := &mockClient{}
	newTestListener(t, mc)

	mc.deliver("powerplan/request", []byte(`{"request_id":"bad","load":-1}`))
	mc.deliver("powerplan/request", []byte(`not json`))

	msgs := mc.messages()
	require.Len(t, msgs, 1, "uncorrelated requests get no reply")
	r := decodeReply(t, msgs[0])
	assert.Equal(t, "powerplan/response/bad", msgs[0].topic)
	assert.Contains(t, r.Error, "malformed payload")
	assert.Empty(t, r.PlanID)
}
