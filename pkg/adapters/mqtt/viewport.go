package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
)

// Message is the JSON payload published for each viewport command.
type Message struct {
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	Animated  bool      `json:"animated"`
	Active    bool      `json:"active"`
	Timestamp time.Time `json:"timestamp"`
}

// Viewport implements ports.Viewport by publishing to
// <prefix>/<session>/scroll and <prefix>/<session>/hint.
// Publishing never waits for the broker; failures are logged.
type Viewport struct {
	pub       Publisher
	prefix    string
	sessionID string
	logger    *slog.Logger
}

// NewViewport creates a viewport for one session.
func NewViewport(pub Publisher, prefix, sessionID string, logger *slog.Logger) *Viewport {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Viewport{pub: pub, prefix: prefix, sessionID: sessionID, logger: logger}
}

// Topic returns the topic of one message kind.
func (v *Viewport) Topic(kind string) string {
	return v.prefix + "/" + v.sessionID + "/" + kind
}

// ScrollTo implements ports.Viewport.
func (v *Viewport) ScrollTo(cmd domain.ScrollCommand) {
	v.publish("scroll", Message{Index: cmd.Index, Animated: cmd.Animated})
}

// ForwardAvailable implements ports.Viewport.
func (v *Viewport) ForwardAvailable(active bool) {
	v.publish("hint", Message{Active: active})
}

func (v *Viewport) publish(kind string, msg Message) {
	msg.SessionID = v.sessionID
	msg.Timestamp = time.Now()
	data, err := json.Marshal(msg)
	if err != nil {
		v.logger.Warn("mqtt marshal failed", "error", err)
		return
	}
	topic := v.Topic(kind)
	token := v.pub.Publish(topic, 0, false, data)
	go func() {
		if !token.WaitTimeout(waitTimeout) {
			v.logger.Warn("mqtt publish timeout", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			v.logger.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}()
}
