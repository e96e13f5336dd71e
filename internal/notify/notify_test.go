package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recorder struct {
	name string
	err  error

	mu     sync.Mutex
	events []*models.AlertEvent
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Notify(ctx context.Context, event *models.AlertEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func testEvent(sev models.Severity) *models.AlertEvent {
	until := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	return &models.AlertEvent{
		Alert: &models.AlertRecord{
			ICAO:       "SBMQ",
			AlertType:  "AVISO",
			Content:    "SBMQ AD WRNG 1 VALID 010000/010600 TS OBSC",
			Severity:   sev,
			ValidUntil: &until,
		},
		AffectedAerodromes: []string{"SBMQ"},
		DetectedAt:         time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC),
	}
}

func TestDispatcherRoutesBySeverity(t *testing.T) {
	all := &recorder{name: "ws"}
	high := &recorder{name: "slack"}
	failing := &recorder{name: "broken", err: errors.New("boom")}

	d := NewDispatcher(time.Second, logger.Discard())
	d.Register(all, "")
	d.Register(high, models.SeverityHigh)
	d.Register(failing, "")
	assert.Equal(t, []string{"ws", "slack", "broken"}, d.Names())

	d.Publish(context.Background(), testEvent(models.SeverityLow))
	d.Publish(context.Background(), testEvent(models.SeverityCritical))
	d.Publish(context.Background(), nil)
	d.Wait()

	assert.Equal(t, 2, all.count())
	assert.Equal(t, 1, high.count())
	assert.Equal(t, 2, failing.count())
}

func TestDispatcherSurvivesCallerCancellation(t *testing.T) {
	rec := &recorder{name: "ws"}
	d := NewDispatcher(time.Second, logger.Discard())
	d.Register(rec, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, testEvent(models.SeverityLow))
	d.Wait()

	assert.Equal(t, 1, rec.count())
}

func TestSummary(t *testing.T) {
	event := testEvent(models.SeverityHigh)

	assert.Equal(t, "[HIGH] AD WRNG SBMQ", Title(event))
	s := Summary(event)
	assert.Contains(t, s, "Valid: open - 01/01 06:00Z")
	assert.Contains(t, s, "Affected: SBMQ")
	assert.Contains(t, s, event.Alert.Content)
}

type fakeBroadcaster struct {
	ok   bool
	msgs []string
}

func (f *fakeBroadcaster) Broadcast(msgType, icao string, data interface{}) bool {
	f.msgs = append(f.msgs, msgType+":"+icao)
	return f.ok
}

func TestHubNotifier(t *testing.T) {
	hub := &fakeBroadcaster{ok: true}
	n := NewHubNotifier(hub)
	require.NoError(t, n.Notify(context.Background(), testEvent(models.SeverityLow)))
	assert.Equal(t, []string{"ALERT:SBMQ"}, hub.msgs)

	hub.ok = false
	assert.Error(t, n.Notify(context.Background(), testEvent(models.SeverityLow)))
}

type fakePublisher struct{ events []*models.AlertEvent }

func (f *fakePublisher) PublishAlert(event *models.AlertEvent) error {
	f.events = append(f.events, event)
	return nil
}

func TestMQTTNotifier(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, NewMQTTNotifier(pub).Notify(context.Background(), testEvent(models.SeverityLow)))
	assert.Len(t, pub.events, 1)
}

func TestSlackNotifier(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat.postMessage"))
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"channel":     r.FormValue("channel"),
			"text":        r.FormValue("text"),
			"attachments": r.FormValue("attachments"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1704067500.000100"}`))
	}))
	defer srv.Close()

	n := NewSlackNotifier("xoxb-test", "#ops-alerts", slack.OptionAPIURL(srv.URL+"/"))
	require.NoError(t, n.Notify(context.Background(), testEvent(models.SeverityCritical)))

	assert.Equal(t, "#ops-alerts", form["channel"])
	assert.Equal(t, "[CRITICAL] AD WRNG SBMQ", form["text"])
	assert.Contains(t, form["attachments"], "#ff0000")
	assert.Contains(t, form["attachments"], "TS OBSC")
}

type fakeSender struct {
	err  error
	sent []*gomail.Message
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailNotifier(t *testing.T) {
	sender := &fakeSender{}
	n := &EmailNotifier{sender: sender, from: "adwrng@example.org", receivers: []string{"ops@example.org", "cgna@example.org"}}

	require.NoError(t, n.Notify(context.Background(), testEvent(models.SeverityMedium)))
	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, []string{"[MEDIUM] AD WRNG SBMQ"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.org", "cgna@example.org"}, m.GetHeader("To"))

	sender.err = errors.New("535 auth failed")
	assert.ErrorContains(t, n.Notify(context.Background(), testEvent(models.SeverityMedium)), "535")

	n.receivers = nil
	assert.Error(t, n.Notify(context.Background(), testEvent(models.SeverityMedium)))
}

type fakeWebhook struct {
	id, token string
	params    *discordgo.WebhookParams
}

func (f *fakeWebhook) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.id, f.token, f.params = webhookID, token, data
	return nil, nil
}

func TestDiscordNotifier(t *testing.T) {
	hook := &fakeWebhook{}
	n := &DiscordNotifier{session: hook, webhookID: "123", token: "abc"}

	require.NoError(t, n.Notify(context.Background(), testEvent(models.SeverityHigh)))
	assert.Equal(t, "123", hook.id)
	assert.Equal(t, "abc", hook.token)
	require.Len(t, hook.params.Embeds, 1)

	embed := hook.params.Embeds[0]
	assert.Equal(t, "[HIGH] AD WRNG SBMQ", embed.Title)
	assert.Equal(t, 0xFF8C00, embed.Color)

	names := []string{}
	for _, f := range embed.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"Aerodrome", "Affected", "Severity", "Valid"}, names)
}

func TestParseWebhookURL(t *testing.T) {
	id, token, err := ParseWebhookURL("https://discord.com/api/webhooks/112233/tok-EN_x")
	require.NoError(t, err)
	assert.Equal(t, "112233", id)
	assert.Equal(t, "tok-EN_x", token)

	_, _, err = ParseWebhookURL("https://discord.com/api/channels/1")
	assert.Error(t, err)

	_, err = NewDiscordNotifier("not a webhook")
	assert.Error(t, err)
}
