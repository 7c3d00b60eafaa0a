package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printqueue/internal/logger"
	"printqueue/internal/services"
	"printqueue/models"
)

func TestPublisher_Publish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	p := NewPublisher(sp, "printqueue", 1, logger.NewNop())
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	ev := services.LifecycleEvent{
		Type:  services.EventCalled,
		Desk:  models.Desk1,
		Entry: &models.QueueEntry{ID: "abc", QueueNumber: 4, Status: models.StatusServing, Desk: models.Desk1},
		At:    at,
	}

	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "printqueue.queue.called" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "abc" {
			return errors.New("unexpected key " + string(key))
		}
		raw, _ := msg.Value.Encode()
		var got services.LifecycleEvent
		if err := json.Unmarshal(raw, &got); err != nil {
			return err
		}
		if got.Entry == nil || got.Entry.QueueNumber != 4 {
			return errors.New("entry not carried")
		}
		return nil
	})

	require.NoError(t, p.Publish(context.Background(), ev))
}

func TestPublisher_PublishFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	p := NewPublisher(sp, "", 1, logger.NewNop())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := p.Publish(context.Background(), services.LifecycleEvent{Type: services.EventReset})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Equal(t, "queue.reset", p.Topic(services.EventReset))
}

func TestPublisher_RunDrainsBuffer(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	p := NewPublisher(sp, "printqueue", 4, logger.NewNop())
	sp.ExpectSendMessageAndSucceed()
	sp.ExpectSendMessageAndSucceed()

	p.QueueEvent(context.Background(), services.LifecycleEvent{Type: services.EventJoined, Entry: &models.QueueEntry{ID: "1"}})
	p.QueueEvent(context.Background(), services.LifecycleEvent{Type: services.EventJoined, Entry: &models.QueueEntry{ID: "2"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(p.events) == 0 }, time.Second, 5*time.Millisecond)
	// give the second send time to finish before the mock is closed
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
}

func TestPublisher_QueueEventDropsWhenFull(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer sp.Close()

	p := NewPublisher(sp, "printqueue", 1, logger.NewNop())
	p.QueueEvent(context.Background(), services.LifecycleEvent{Type: services.EventJoined})
	p.QueueEvent(context.Background(), services.LifecycleEvent{Type: services.EventJoined})

	assert.Len(t, p.events, 1)
}
