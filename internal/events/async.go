package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/sirupsen/logrus"
)

// ErrPublishQueueFull is returned when the async buffer has no room; the
// event is dropped.
var ErrPublishQueueFull = errors.New("attendance event queue full")

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("attendance event publisher closed")

// AttendancePublisher delivers one event to a broker.
type AttendancePublisher interface {
	PublishAttendance(ctx context.Context, ev AttendanceEvent) error
}

// AsyncPublisher queues events in memory and delivers them from a single
// background goroutine, so callers never wait on the broker.
type AsyncPublisher struct {
	next    AttendancePublisher
	queue   chan AttendanceEvent
	timeout time.Duration
	log     logrus.FieldLogger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsyncPublisher starts the delivery goroutine. Each delivery is bounded
// by timeout.
func NewAsyncPublisher(next AttendancePublisher, buffer int, timeout time.Duration, log logrus.FieldLogger) *AsyncPublisher {
	if log == nil {
		log = logging.Discard()
	}
	if buffer < 1 {
		buffer = 1
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan AttendanceEvent, buffer),
		timeout: timeout,
		log:     log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishAttendance enqueues ev without blocking. ctx is not used for the
// delivery, which happens after the request is gone.
func (p *AsyncPublisher) PublishAttendance(_ context.Context, ev AttendanceEvent) error {
	select {
	case <-p.stop:
		return ErrPublisherClosed
	default:
	}
	select {
	case p.queue <- ev:
		return nil
	default:
		return ErrPublishQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for {
		select {
		case ev := <-p.queue:
			p.deliver(ev)
		case <-p.stop:
			for {
				select {
				case ev := <-p.queue:
					p.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (p *AsyncPublisher) deliver(ev AttendanceEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.next.PublishAttendance(ctx, ev); err != nil {
		logging.SystemError(p.log, "events", err, logrus.Fields{
			"event_id":    ev.ID,
			"employee_id": ev.EmployeeID,
		})
	}
}

// Close stops accepting events and waits until the queued ones were tried.
func (p *AsyncPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.stop) })
	<-p.done
	return nil
}
