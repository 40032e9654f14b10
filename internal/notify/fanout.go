// Package notify delivers report changes to owners, authorities and the admin
// feed. Delivery is best effort: nothing here can fail the operation that
// produced the event.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultQueueSize = 256
	sendTimeout      = 5 * time.Second
)

// Sink delivers one message to one channel.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Publisher is what the dispatch service depends on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Fanout keeps one bounded queue and one worker per target kind, so messages
// on a channel leave in the order they were published.
type Fanout struct {
	sinks  []Sink
	queues map[TargetKind]chan Message
	logger logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewFanout(logger logrus.FieldLogger, queueSize int, sinks ...Sink) *Fanout {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	f := &Fanout{
		sinks:  sinks,
		queues: make(map[TargetKind]chan Message),
		logger: logger.WithField("module", "notify"),
	}
	for _, kind := range []TargetKind{TargetOwner, TargetAuthority, TargetAdmin} {
		q := make(chan Message, queueSize)
		f.queues[kind] = q
		f.wg.Add(1)
		go f.worker(kind, q)
	}
	return f
}

// Publish enqueues every target of ev without blocking. If ctx is already
// done the whole event is skipped; a full queue drops that target only.
func (f *Fanout) Publish(ctx context.Context, ev Event) {
	if ctx.Err() != nil {
		f.logger.WithField("report_id", ev.ReportID).Debug("context done, skipping notification")
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		f.logger.WithField("report_id", ev.ReportID).Warn("fanout closed, dropping notification")
		return
	}

	for _, t := range ev.Targets {
		q, ok := f.queues[t.Kind]
		if !ok {
			continue
		}
		select {
		case q <- t.Message:
		default:
			f.logger.WithFields(logrus.Fields{
				"report_id": ev.ReportID,
				"channel":   t.Message.Channel,
				"event":     t.Message.Event,
			}).Warn("notification queue full, dropping message")
		}
	}
}

func (f *Fanout) worker(kind TargetKind, q <-chan Message) {
	defer f.wg.Done()
	for msg := range q {
		for _, sink := range f.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			err := sink.Send(ctx, msg)
			cancel()
			if err != nil {
				f.logger.WithError(err).WithFields(logrus.Fields{
					"sink":    sink.Name(),
					"queue":   kind.String(),
					"channel": msg.Channel,
					"event":   msg.Event,
				}).Warn("notification delivery failed")
			}
		}
	}
}

// Close stops accepting events and waits for queued messages to drain.
func (f *Fanout) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for _, q := range f.queues {
		close(q)
	}
	f.mu.Unlock()
	f.wg.Wait()
}
