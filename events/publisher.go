package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/wfunc/typerace/logger"
	"github.com/wfunc/typerace/models"
)

const EventGameFinished = "game.finished"

type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "TYPERACE_RESULTS",
		SubjectPrefix: "typerace.results",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        7 * 24 * time.Hour,
	}
}

// GameFinishedEvent is the body published for every recorded game.
type GameFinishedEvent struct {
	EventType  string                  `json:"eventType"`
	SessionKey string                  `json:"sessionKey"`
	Timestamp  time.Time               `json:"timestamp"`
	Result     *models.FinalizedResult `json:"result"`
}

// Subject is <prefix>.<roomCode>.
func Subject(prefix, roomCode string) string {
	return fmt.Sprintf("%s.%s", prefix, roomCode)
}

func NewGameFinishedEvent(sessionKey string, result *models.FinalizedResult) GameFinishedEvent {
	return GameFinishedEvent{
		EventType:  EventGameFinished,
		SessionKey: sessionKey,
		Timestamp:  time.UnixMilli(result.FinishedAtMs).UTC(),
		Result:     result,
	}
}

type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("typerace"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Log.Errorf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Log.Errorf("NATS error: %v", err)
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Finished typing races",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	return err
}

// PublishGameFinished publishes once per session key; JetStream drops
// duplicates of the same key.
func (p *JetStreamPublisher) PublishGameFinished(ctx context.Context, sessionKey string, result *models.FinalizedResult) error {
	subject := Subject(p.config.SubjectPrefix, result.RoomCode)

	data, err := json.Marshal(NewGameFinishedEvent(sessionKey, result))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type":  []string{EventGameFinished},
			"Room-Code":   []string{result.RoomCode},
			"Session-Key": []string{sessionKey},
		},
	},
		jetstream.WithMsgID(sessionKey),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	logger.Log.Debugf("Published %s to %s (stream %s seq %d)", sessionKey, subject, ack.Stream, ack.Sequence)
	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
