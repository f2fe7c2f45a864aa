package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// StitchEvent represents a stitch lifecycle event
type StitchEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	JobID          string                 `json:"job_id"`
	FrameCount     int                    `json:"frame_count,omitempty"`
	FrameIndex     int                    `json:"frame_index,omitempty"`
	Shift          int                    `json:"shift,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of stitch event
type EventType string

const (
	// StitchStarted when a stitch job begins
	StitchStarted EventType = "stitch_started"
	// FramesFetched when every frame of a job has been loaded
	FramesFetched EventType = "frames_fetched"
	// FrameAligned when a frame's shift has been found
	FrameAligned EventType = "frame_aligned"
	// StitchCompleted when a stitch job finishes successfully
	StitchCompleted EventType = "stitch_completed"
	// StitchFailed when a stitch job fails
	StitchFailed EventType = "stitch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event StitchEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event StitchEvent)
}

// LoggingObserver logs stitch events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles stitch events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event StitchEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"job_id":          event.JobID,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case StitchStarted:
		fields["frame_count"] = event.FrameCount
		o.logger.WithFields(fields).Info("Stitch started")
	case FramesFetched:
		fields["frame_count"] = event.FrameCount
		o.logger.WithFields(fields).Debug("Frames fetched")
	case FrameAligned:
		fields["frame_index"] = event.FrameIndex
		fields["shift"] = event.Shift
		o.logger.WithFields(fields).Debug("Frame aligned")
	case StitchCompleted:
		o.logger.WithFields(fields).Info("Stitch completed")
	case StitchFailed:
		o.logger.WithFields(fields).Error("Stitch failed")
	default:
		o.logger.WithFields(fields).Info("Stitch event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects metrics from stitch events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalStitches       int64
	successfulStitches  int64
	failedStitches      int64
	framesAligned       int64
	totalShift          int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles stitch events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event StitchEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case StitchStarted:
		o.totalStitches++
	case FrameAligned:
		o.framesAligned++
		o.totalShift += int64(event.Shift)
	case StitchCompleted:
		o.successfulStitches++
		o.totalProcessingTime += event.ProcessingTime
	case StitchFailed:
		o.failedStitches++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulStitches > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulStitches)
	}
	avgShift := 0.0
	if o.framesAligned > 0 {
		avgShift = float64(o.totalShift) / float64(o.framesAligned)
	}

	return map[string]interface{}{
		"total_stitches":        o.totalStitches,
		"successful_stitches":   o.successfulStitches,
		"failed_stitches":       o.failedStitches,
		"frames_aligned":        o.framesAligned,
		"avg_shift":             avgShift,
		"total_processing_time": o.totalProcessingTime.String(),
		"avg_processing_time":   avgProcessingTime.String(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event StitchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush blocks until every notification sent so far has been handled
func (p *EventPublisher) Flush() {
	p.inflight.Wait()
}
