// Package notify raises desktop notifications for failed wallpaper changes
// through the freedesktop notification service on the session bus.
package notify

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/khaneliman/hypr-socket-watch/internal/dispatch"
	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/rs/zerolog"
)

const (
	notificationsService   = "org.freedesktop.Notifications"
	notificationsPath      = "/org/freedesktop/Notifications"
	notificationsInterface = "org.freedesktop.Notifications"

	appName = "hypr-socket-watch"
	// expireTimeout is in milliseconds
	expireTimeout = int32(5000)
)

// Message is a rendered notification
type Message struct {
	Summary string
	Body    string
}

// Sender delivers a notification
type Sender interface {
	Send(msg Message) error
}

// Notifier turns failed outcomes into notifications. Repeated failures for
// the same monitor and reason are collapsed until a success clears them.
type Notifier struct {
	sender Sender
	log    zerolog.Logger

	mu   sync.Mutex
	last map[string]string
}

// New creates a notifier
func New(sender Sender, log zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		log:    logger.WithComponent(log, "notify"),
		last:   make(map[string]string),
	}
}

// Observe matches dispatch.Observer
func (n *Notifier) Observe(o dispatch.Outcome) {
	n.mu.Lock()
	if o.OK() {
		delete(n.last, o.Monitor)
		n.mu.Unlock()
		return
	}
	msg := Render(o)
	if n.last[o.Monitor] == msg.Body {
		n.mu.Unlock()
		return
	}
	n.last[o.Monitor] = msg.Body
	n.mu.Unlock()

	if err := n.sender.Send(msg); err != nil {
		n.log.Warn().Err(err).Str("monitor", o.Monitor).Msg("Failed to send notification")
	}
}

// Render builds the notification text for a failed outcome
func Render(o dispatch.Outcome) Message {
	summary := fmt.Sprintf("Wallpaper not applied on %s", o.Monitor)
	name := filepath.Base(o.Artifact)

	var body string
	switch {
	case o.SemanticFailure != "":
		body = fmt.Sprintf("%s: %s", name, o.SemanticFailure)
	case o.Stderr != "":
		body = fmt.Sprintf("%s: %s", name, o.Stderr)
	case o.Error != "":
		body = fmt.Sprintf("%s: %s", name, o.Error)
	default:
		body = name
	}
	return Message{Summary: summary, Body: body}
}

// DBusSender talks to org.freedesktop.Notifications
type DBusSender struct {
	conn *dbus.Conn
}

// NewDBusSender connects to the session bus
func NewDBusSender() (*DBusSender, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBusSender{conn: conn}, nil
}

// Send calls Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
func (s *DBusSender) Send(msg Message) error {
	obj := s.conn.Object(notificationsService, dbus.ObjectPath(notificationsPath))
	call := obj.Call(notificationsInterface+".Notify", 0,
		appName,
		uint32(0),
		"preferences-desktop-wallpaper",
		msg.Summary,
		msg.Body,
		[]string{},
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(byte(1))},
		expireTimeout,
	)
	if call.Err != nil {
		return fmt.Errorf("notify call failed: %w", call.Err)
	}
	return nil
}

// Close releases the bus connection
func (s *DBusSender) Close() error {
	return s.conn.Close()
}
