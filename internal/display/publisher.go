// Package display pushes the TV display state to PubNub whenever the live
// queue changes.
package display

import (
	"context"
	"fmt"

	pubnub "github.com/pubnub/go/v7"

	"printqueue/internal/logger"
	"printqueue/internal/services"
	"printqueue/utils"
)

type Config struct {
	PublishKey   string
	SubscribeKey string
	SecretKey    string
	UserID       string
	Channel      string
	// WaitingLimit is how many waiting entries the screen lists.
	WaitingLimit int
}

// sender abstracts the PubNub client for tests.
type sender interface {
	send(channel string, msg any) error
}

type pubnubSender struct {
	pn *pubnub.PubNub
}

func (s pubnubSender) send(channel string, msg any) error {
	_, st, err := s.pn.Publish().Channel(channel).Message(msg).Execute()
	if err != nil {
		return err
	}
	if st.Error != nil {
		return st.Error
	}
	return nil
}

func NewPubNub(cfg Config) *pubnub.PubNub {
	pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.UserID))
	pnCfg.PublishKey = cfg.PublishKey
	pnCfg.SubscribeKey = cfg.SubscribeKey
	pnCfg.SecretKey = cfg.SecretKey
	return pubnub.NewPubNub(pnCfg)
}

// Publisher keeps only the latest view: a burst of changes results in one
// message carrying the newest state.
type Publisher struct {
	out     sender
	channel string
	limit   int
	breaker *utils.CircuitBreaker
	l       logger.Logger
	latest  chan services.QueueView
}

func NewPublisher(pn *pubnub.PubNub, cfg Config, l logger.Logger) *Publisher {
	return newPublisher(pubnubSender{pn: pn}, cfg, l)
}

func newPublisher(out sender, cfg Config, l logger.Logger) *Publisher {
	if cfg.WaitingLimit <= 0 {
		cfg.WaitingLimit = 10
	}
	if cfg.Channel == "" {
		cfg.Channel = "printqueue-display"
	}
	return &Publisher{
		out:     out,
		channel: cfg.Channel,
		limit:   cfg.WaitingLimit,
		breaker: utils.NewCircuitBreaker(utils.BreakerSettings{
			Name: "pubnub-display",
			OnStateChange: func(name string, from, to utils.State) {
				l.Warnf(context.Background(), "display: %s breaker %s -> %s", name, from, to)
			},
		}),
		l:      l,
		latest: make(chan services.QueueView, 1),
	}
}

// Observe is the QueueService observer. It never blocks.
func (p *Publisher) Observe(v services.QueueView) {
	for {
		select {
		case p.latest <- v:
			return
		default:
		}
		// Replace the pending view with the newer one.
		select {
		case <-p.latest:
		default:
		}
	}
}

// Run publishes pending views until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case v := <-p.latest:
			if err := p.Publish(v); err != nil {
				p.l.Warnf(ctx, "display.Publisher.Run: %v", err)
			}
		}
	}
}

func (p *Publisher) Publish(v services.QueueView) error {
	msg := map[string]any{
		"type":  "display",
		"state": v.Display(p.limit),
	}
	err := p.breaker.Execute(func() error {
		return p.out.send(p.channel, msg)
	})
	if err != nil {
		return fmt.Errorf("publish display state v%d: %w", v.Version, err)
	}
	return nil
}
