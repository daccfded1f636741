package metrics

import "time"

// WorkerObserver binds WorkerMetrics to a fixed service label so the batch
// processor can report telemetry without knowing about Prometheus.
type WorkerObserver struct {
	metrics *WorkerMetrics
	service string
}

func NewWorkerObserver(metrics *WorkerMetrics, service string) *WorkerObserver {
	return &WorkerObserver{metrics: metrics, service: service}
}

func (o *WorkerObserver) StartDocument() {
	o.metrics.StartDocument()
}

func (o *WorkerObserver) FinishDocument(duration time.Duration, err error) {
	o.metrics.FinishDocument(o.service, duration, err)
}

func (o *WorkerObserver) FinishJob(status string) {
	o.metrics.FinishJob(o.service, status)
}

func (o *WorkerObserver) ObserveQueueLag(lag time.Duration) {
	o.metrics.ObserveQueueLag(o.service, lag)
}
