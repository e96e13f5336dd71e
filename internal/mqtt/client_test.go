package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *doneToken) Error() error { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePaho struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	published  []published
	subs       map[string]paho.MessageHandler
}

func (f *fakePaho) IsConnected() bool      { return f.connected }
func (f *fakePaho) IsConnectionOpen() bool { return f.connected }
func (f *fakePaho) Connect() paho.Token {
	f.connected = true
	return &doneToken{}
}
func (f *fakePaho) Disconnect(uint) { f.connected = false }
func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return &doneToken{err: f.publishErr}
	}
	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	}
	f.published = append(f.published, published{topic, qos, retained, body})
	return &doneToken{}
}
func (f *fakePaho) Subscribe(topic string, qos byte, cb paho.MessageHandler) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = map[string]paho.MessageHandler{}
	}
	f.subs[topic] = cb
	return &doneToken{}
}
func (f *fakePaho) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &doneToken{}
}
func (f *fakePaho) Unsubscribe(...string) paho.Token        { return &doneToken{} }
func (f *fakePaho) AddRoute(string, paho.MessageHandler)    {}
func (f *fakePaho) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestClient(t *testing.T) (*Client, *fakePaho) {
	t.Helper()
	fake := &fakePaho{}
	c := newClient(&config.MQTTConfig{
		Broker:         "broker.test",
		AlertTopic:     "adwrng/alerts/",
		QoS:            1,
		ConnectTimeout: time.Second,
	}, logger.Discard())
	c.client = fake
	require.NoError(t, c.Connect())
	return c, fake
}

func TestPublishAlert(t *testing.T) {
	c, fake := newTestClient(t)

	event := &models.AlertEvent{
		Alert:              &models.AlertRecord{ICAO: "SBMQ", Content: "AD WRNG SBMQ", Severity: models.SeverityHigh},
		AffectedAerodromes: []string{"SBMQ"},
	}
	require.NoError(t, c.PublishAlert(event))

	require.Len(t, fake.published, 1)
	msg := fake.published[0]
	assert.Equal(t, "adwrng/alerts/SBMQ", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var decoded models.AlertEvent
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, "AD WRNG SBMQ", decoded.Alert.Content)
	assert.Equal(t, []string{"SBMQ"}, decoded.AffectedAerodromes)
}

func TestPublishFailures(t *testing.T) {
	c, fake := newTestClient(t)

	assert.Error(t, c.PublishAlert(&models.AlertEvent{}))

	fake.publishErr = errors.New("broker gone")
	assert.ErrorContains(t, c.PublishAlert(&models.AlertEvent{Alert: &models.AlertRecord{ICAO: "SBMQ"}}), "broker gone")

	c.Disconnect()
	assert.ErrorContains(t, c.Publish("x", nil), "not connected")
}

func TestRegisterRequests(t *testing.T) {
	c, fake := newTestClient(t)

	got := make(chan string, 4)
	require.NoError(t, c.SubscribeRegisterRequests(func(s string) bool { return len(s) == 4 }, func(icao string) {
		got <- icao
	}))

	cb := fake.subs[RegisterRequestTopic]
	require.NotNil(t, cb)

	cb(fake, &fakeMessage{topic: "adwrng/requests/sbmq/register"})
	cb(fake, &fakeMessage{topic: "adwrng/requests/TOOLONG/register"})
	cb(fake, &fakeMessage{topic: "adwrng/requests/SBBE/register"})

	var icaos []string
	for len(icaos) < 2 {
		select {
		case icao := <-got:
			icaos = append(icaos, icao)
		case <-time.After(time.Second):
			t.Fatalf("register requests not handled, got %v", icaos)
		}
	}
	assert.ElementsMatch(t, []string{"SBMQ", "SBBE"}, icaos)
	assert.Empty(t, got, "malformed request must not reach the handler")

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Connected)
	assert.Equal(t, 1, health.Subscriptions)
}

func TestRegisterRequestDoesNotBlockCallback(t *testing.T) {
	c, fake := newTestClient(t)

	release := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, c.SubscribeRegisterRequests(func(string) bool { return true }, func(string) {
		<-release
		close(done)
	}))

	returned := make(chan struct{})
	go func() {
		fake.subs[RegisterRequestTopic](fake, &fakeMessage{topic: "adwrng/requests/SBMQ/register"})
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("message callback waited for the register handler")
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register handler never ran")
	}
}

func TestPresenceAndResubscribe(t *testing.T) {
	c, fake := newTestClient(t)
	require.NoError(t, c.SubscribeRegisterRequests(func(string) bool { return true }, func(string) {}))
	fake.subs = nil

	c.onConnect(fake)

	require.Len(t, fake.published, 1)
	assert.Equal(t, PresenceTopic, fake.published[0].topic)
	assert.Equal(t, "online", string(fake.published[0].payload))
	assert.True(t, fake.published[0].retained)
	assert.Contains(t, fake.subs, RegisterRequestTopic, "subscriptions restored after reconnect")

	c.Disconnect()
	require.Len(t, fake.published, 2)
	assert.Equal(t, "offline", string(fake.published[1].payload))
	assert.False(t, c.IsConnected())
}

func TestMatchTopic(t *testing.T) {
	assert.True(t, matchTopic("adwrng/requests/+/register", "adwrng/requests/SBMQ/register"))
	assert.True(t, matchTopic("adwrng/#", "adwrng/alerts/SBMQ"))
	assert.False(t, matchTopic("adwrng/requests/+/register", "adwrng/requests/SBMQ"))
	assert.False(t, matchTopic("adwrng/alerts/+", "adwrng/alerts/SBMQ/extra"))
	assert.False(t, matchTopic("adwrng/alerts/SBMQ", "adwrng/alerts/SBBE"))
}

func TestAlertTopic(t *testing.T) {
	assert.Equal(t, "adwrng/alerts/SBGL", AlertTopic("adwrng/alerts", "SBGL"))
	assert.Equal(t, "adwrng/alerts/SBGL", AlertTopic("adwrng/alerts/", "SBGL"))
}
