package agent

import (
	"context"
	"time"
)

// analysisJob carries the post-response memory update work. Jobs are
// best-effort: a full queue drops the job rather than delaying the reply.
type analysisJob struct {
	SessionID string
	UserID    string
	Domain    string
	Message   string
}

const (
	analysisQueueSize      = 100
	analysisPublishTimeout = 100 * time.Millisecond
	analysisJobTimeout     = 10 * time.Second
	maxTopicsPerMessage    = 3
)

func (r *Responder) enqueueAnalysis(job analysisJob) {
	r.analysisMu.RLock()
	defer r.analysisMu.RUnlock()
	if r.analysisClosed {
		r.droppedJobs.Add(1)
		return
	}

	select {
	case r.analysisCh <- job:
	default:
		timer := time.NewTimer(analysisPublishTimeout)
		defer timer.Stop()
		select {
		case r.analysisCh <- job:
		case <-timer.C:
			r.droppedJobs.Add(1)
			r.log.Warn().Str("session", job.SessionID).Msg("analysis queue full, memory update dropped")
		}
	}
}

// runAnalysis is the single worker draining the queue. Everything here is
// best-effort: failures are logged and swallowed, never surfaced to callers.
func (r *Responder) runAnalysis() {
	defer r.wg.Done()
	for job := range r.analysisCh {
		r.analyze(job)
	}
}

func (r *Responder) analyze(job analysisJob) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisJobTimeout)
	defer cancel()

	topics := extractTopics(job.Message, maxTopicsPerMessage)

	var firstTopic string
	if len(topics) > 0 {
		firstTopic = topics[0]
	}
	if err := r.memory.AppendContext(ctx, job.SessionID, job.UserID, job.Message, firstTopic); err != nil {
		r.log.Warn().Str("session", job.SessionID).Err(err).Msg("session context update failed")
	}
	for _, topic := range topics {
		if err := r.memory.RecordTopic(ctx, job.UserID, topic, job.Domain); err != nil {
			r.log.Warn().Str("user", job.UserID).Str("topic", topic).Err(err).Msg("topic recording failed")
		}
	}
}

// DroppedAnalysisJobs reports how many memory updates were discarded under
// backpressure.
func (r *Responder) DroppedAnalysisJobs() uint64 {
	return r.droppedJobs.Load()
}
