// Package notify fans newly created alerts out to the realtime channels
// (websocket, MQTT) and to the external alarm channels (Slack, e-mail, Discord).
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/logger"
	"github.com/wilheimcosta/adwrng2/internal/models"
)

// Notifier delivers one alert event to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event *models.AlertEvent) error
}

type route struct {
	notifier    Notifier
	minSeverity models.Severity
}

// Dispatcher sends every event to all registered notifiers concurrently.
// Delivery failures are logged and never reach the caller.
type Dispatcher struct {
	routes  []route
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		timeout: timeout,
		log:     log.With("notify"),
	}
}

// Register adds n for events of at least minSeverity. An empty minSeverity
// accepts everything.
func (d *Dispatcher) Register(n Notifier, minSeverity models.Severity) {
	d.routes = append(d.routes, route{notifier: n, minSeverity: minSeverity})
	d.log.Info("Notifier %s enabled (min severity: %s)", n.Name(), orAll(minSeverity))
}

// Names lists the registered notifiers in registration order.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.routes))
	for _, r := range d.routes {
		names = append(names, r.notifier.Name())
	}
	return names
}

// Publish starts delivery of event and returns immediately. Deliveries
// outlive the caller's cancellation but are bounded by the dispatcher timeout.
func (d *Dispatcher) Publish(ctx context.Context, event *models.AlertEvent) {
	if event == nil || event.Alert == nil {
		return
	}

	base := context.WithoutCancel(ctx)
	for _, r := range d.routes {
		if r.minSeverity != "" && event.Alert.Severity.Rank() < r.minSeverity.Rank() {
			continue
		}

		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()

			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := n.Notify(sendCtx, event); err != nil {
				d.log.Error("%s delivery for %s failed: %v", n.Name(), event.Alert.ICAO, err)
				return
			}
			d.log.Debug("%s delivered alert %s", n.Name(), event.Alert.ID)
		}(r.notifier)
	}
}

// Wait blocks until every delivery started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func orAll(s models.Severity) string {
	if s == "" {
		return "all"
	}
	return string(s)
}

// Title is the one-line headline shared by the external channels.
func Title(event *models.AlertEvent) string {
	return fmt.Sprintf("[%s] AD WRNG %s", strings.ToUpper(string(event.Alert.Severity)), event.Alert.ICAO)
}

// Summary renders the event as plain text for chat and e-mail bodies.
func Summary(event *models.AlertEvent) string {
	a := event.Alert
	var b strings.Builder

	fmt.Fprintf(&b, "Aerodrome: %s\n", a.ICAO)
	fmt.Fprintf(&b, "Type: %s\n", a.AlertType)
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "Valid: %s\n", Window(a))
	if len(event.AffectedAerodromes) > 0 {
		fmt.Fprintf(&b, "Affected: %s\n", strings.Join(event.AffectedAerodromes, ", "))
	}
	fmt.Fprintf(&b, "\n%s\n", a.Content)
	return b.String()
}

// Window formats the validity window, "open" standing for an unbounded side.
func Window(a *models.AlertRecord) string {
	return formatBound(a.ValidFrom) + " - " + formatBound(a.ValidUntil)
}

func formatBound(t *time.Time) string {
	if t == nil {
		return "open"
	}
	return t.UTC().Format("02/01 15:04Z")
}
