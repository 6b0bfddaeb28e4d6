package queue

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/healthtech/clinic-scheduler/internal/api/metrics"
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher fans appointment events out to a fixed set of audit workers.
// Events are sharded by appointment id so each appointment's history is
// written in order.
type Dispatcher struct {
	workers []chan domain.AppointmentEvent
	service ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AppointmentEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AppointmentEvent, channelBuffer)
	}
	return d
}

// Start launches the workers. They drain their channels and exit once ctx is
// cancelled; Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *Dispatcher) Wait() { d.wg.Wait() }

// Enqueue hands event to its worker without blocking. When the worker's
// channel is full the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.AppointmentEvent) {
	idx := d.shardIndex(event.AppointmentID)
	select {
	case d.workers[idx] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.AuditDroppedTotal.Inc()
		d.log.Warn().
			Str("event_id", event.ID).
			Int64("appointment_id", event.AppointmentID).
			Int("worker_id", idx).
			Msg("audit queue full, event dropped")
	}
}

func (d *Dispatcher) shardIndex(appointmentID int64) int {
	if appointmentID < 0 {
		appointmentID = -appointmentID
	}
	return int(appointmentID % int64(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AppointmentEvent) {
	defer d.wg.Done()
	depth := metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch, depth)
			return
		case event := <-ch:
			depth.Dec()
			d.process(ctx, id, event)
		}
	}
}

// drain writes whatever is still buffered after shutdown was requested.
func (d *Dispatcher) drain(id int, ch <-chan domain.AppointmentEvent, depth prometheus.Gauge) {
	ctx := context.Background()
	for {
		select {
		case event := <-ch:
			depth.Dec()
			d.process(ctx, id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, event domain.AppointmentEvent) {
	if err := d.service.Process(ctx, event); err != nil {
		d.log.Error().Err(err).
			Str("event_id", event.ID).
			Int64("appointment_id", event.AppointmentID).
			Int("worker_id", id).
			Msg("audit event failed")
	}
}
