package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/session"
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Dispatcher receives decoded inputs. session.Manager satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, id string, cmd session.Command) (domain.PlaybackState, bool, error)
}

// Bridge subscribes to <prefix>/+/input and dispatches each JSON command to
// the session named by the middle topic level.
type Bridge struct {
	sub    Subscriber
	prefix string
	target Dispatcher
	logger *slog.Logger
}

// NewBridge creates an input bridge.
func NewBridge(sub Subscriber, prefix string, target Dispatcher, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bridge{sub: sub, prefix: prefix, target: target, logger: logger}
}

func (b *Bridge) topic() string {
	return b.prefix + "/+/input"
}

// Start subscribes and keeps dispatching until ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	token := b.sub.Subscribe(b.topic(), 1, func(_ paho.Client, msg paho.Message) {
		b.handle(ctx, msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(waitTimeout) {
		return &TimeoutError{Op: "subscribe", Target: b.topic()}
	}
	if err := token.Error(); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		b.sub.Unsubscribe(b.topic())
	}()
	return nil
}

func (b *Bridge) handle(ctx context.Context, topic string, payload []byte) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/")
	if !ok {
		return
	}
	sessionID, kind, ok := strings.Cut(rest, "/")
	if !ok || kind != "input" || sessionID == "" {
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		b.logger.Warn("mqtt input is not JSON", "topic", topic, "error", err)
		return
	}
	cmd, err := session.DecodeCommand(raw)
	if err != nil {
		b.logger.Warn("mqtt input rejected", "topic", topic, "error", err)
		return
	}
	if _, _, err := b.target.Dispatch(ctx, sessionID, cmd); err != nil {
		b.logger.Warn("mqtt input failed", "session_id", sessionID, "type", cmd.Type, "error", err)
	}
}
