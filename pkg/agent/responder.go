// Package agent composes intent classification, tiered memory, context
// synthesis, streaming, and the fallback cascade into a single respond call.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dotsetgreg/chatmind/pkg/fallback"
	"github.com/dotsetgreg/chatmind/pkg/intent"
	"github.com/dotsetgreg/chatmind/pkg/logger"
	"github.com/dotsetgreg/chatmind/pkg/memory"
	"github.com/dotsetgreg/chatmind/pkg/news"
	"github.com/dotsetgreg/chatmind/pkg/providers"
	"github.com/dotsetgreg/chatmind/pkg/synth"
)

// Response state transitions, logged per invocation.
const (
	stateClassifying      = "classifying"
	stateShortCircuitDone = "short_circuit_done"
	stateSynthesizing     = "synthesizing"
	stateStreaming        = "streaming"
	stateDone             = "done"
	stateFailed           = "failed"
	stateFallbackDone     = "fallback_done"
)

// Request is one user turn. OnChunk receives the cumulative text so far on
// every delta (callers render replace-in-place); short-circuited and
// fallback replies invoke it exactly once with the full text.
type Request struct {
	SessionID           string
	UserID              string
	DisplayName         string
	Domain              string
	InstructionTemplate string
	History             []providers.Message
	Message             string
	Attachment          *providers.Attachment
	OnChunk             func(cumulative string)
}

// Responder owns the per-turn pipeline. Construct with NewResponder and
// release with Close, which drains pending memory analysis.
type Responder struct {
	memory   *memory.Store
	provider providers.Provider
	selector *fallback.Selector
	news     news.Fetcher
	log      *bolt.Logger

	analysisCh     chan analysisJob
	analysisMu     sync.RWMutex
	analysisClosed bool
	droppedJobs    atomic.Uint64
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

func NewResponder(mem *memory.Store, provider providers.Provider, selector *fallback.Selector, fetcher news.Fetcher, log *bolt.Logger) (*Responder, error) {
	if mem == nil {
		return nil, errors.New("agent: memory store is required")
	}
	if provider == nil {
		return nil, errors.New("agent: provider is required")
	}
	if selector == nil {
		selector = fallback.NewSelector()
	}
	if fetcher == nil {
		fetcher = news.StaticFetcher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	r := &Responder{
		memory:     mem,
		provider:   provider,
		selector:   selector,
		news:       fetcher,
		log:        log,
		analysisCh: make(chan analysisJob, analysisQueueSize),
	}
	r.wg.Add(1)
	go r.runAnalysis()
	return r, nil
}

// Close stops accepting analysis jobs and waits for the queue to drain.
// Respond stays safe to call afterwards; its memory updates are dropped.
func (r *Responder) Close() {
	r.closeOnce.Do(func() {
		r.analysisMu.Lock()
		r.analysisClosed = true
		close(r.analysisCh)
		r.analysisMu.Unlock()
		r.wg.Wait()
	})
}

// Respond handles one user message end to end and returns the final text.
// AI-side failures never surface: the caller receives either streamed model
// output or a topical fallback. Only caller cancellation and malformed
// requests return an error.
func (r *Responder) Respond(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", errors.New("agent: message is required")
	}
	if req.SessionID == "" || req.UserID == "" {
		return "", errors.New("agent: session and user ids are required")
	}

	r.logState(req, stateClassifying)
	matched := intent.Classify(req.Message)
	if matched != intent.IntentNone {
		return r.shortCircuit(ctx, req, matched)
	}

	r.logState(req, stateSynthesizing)
	session := r.memory.GetSession(ctx, req.SessionID, req.UserID)
	behavioral := r.memory.GetBehavioral(ctx, req.UserID)
	profile := r.memory.GetOrInitProfile(ctx, req.UserID, req.DisplayName)

	instruction := req.InstructionTemplate
	if personalized := synth.Synthesize(session, behavioral, profile, req.Domain); personalized != "" {
		instruction = strings.TrimSpace(instruction + "\n\n" + personalized)
	}

	r.logState(req, stateStreaming)
	var cumulative strings.Builder
	full, err := r.provider.StreamChat(ctx, providers.ChatRequest{
		SystemInstruction: instruction,
		History:           req.History,
		Message:           req.Message,
		Attachment:        req.Attachment,
	}, func(delta string) {
		cumulative.WriteString(delta)
		if req.OnChunk != nil {
			req.OnChunk(cumulative.String())
		}
	})
	if err != nil {
		// Cancellation is a caller decision, not a failure. It is decided
		// from the caller's context only: a provider-side timeout wraps
		// context.DeadlineExceeded too, and that one must fall back.
		if ctx.Err() != nil {
			return "", err
		}
		reason := providers.ClassifyFailure(err)
		r.logState(req, stateFailed)
		r.log.Warn().
			Str("session", req.SessionID).
			Str("reason", string(reason)).
			Err(err).
			Msg("model stream failed, serving fallback")
		text := r.selector.Select(req.Domain, string(reason))
		if req.OnChunk != nil {
			req.OnChunk(text)
		}
		r.logState(req, stateFallbackDone)
		r.enqueueAnalysis(analysisJob{SessionID: req.SessionID, UserID: req.UserID, Domain: req.Domain, Message: req.Message})
		return text, nil
	}

	r.logState(req, stateDone)
	r.enqueueAnalysis(analysisJob{SessionID: req.SessionID, UserID: req.UserID, Domain: req.Domain, Message: req.Message})
	return full, nil
}

// shortCircuit produces the full reply without touching the model. Memory is
// not updated for short-circuited turns.
func (r *Responder) shortCircuit(ctx context.Context, req Request, matched intent.Intent) (string, error) {
	var text string
	switch matched {
	case intent.IntentInjection:
		text = injectionResponse
	case intent.IntentAuthMethod:
		text = authMethodResponse
	case intent.IntentOrigin:
		text = originResponse
	case intent.IntentCurrentEvents:
		headlines, err := r.news.Headlines(ctx, req.Message, 5)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			r.log.Warn().Str("session", req.SessionID).Err(err).Msg("headlines fetch failed, serving fallback")
			headlines = r.selector.Select(req.Domain, string(providers.ReasonNetwork))
		}
		text = headlines
	default:
		return "", fmt.Errorf("agent: unhandled intent %q", matched)
	}

	if req.OnChunk != nil {
		req.OnChunk(text)
	}
	r.log.Info().
		Str("session", req.SessionID).
		Str("intent", string(matched)).
		Str("state", stateShortCircuitDone).
		Msg("responded without model call")
	return text, nil
}

func (r *Responder) logState(req Request, state string) {
	r.log.Info().
		Str("session", req.SessionID).
		Str("user", req.UserID).
		Str("state", state).
		Msg("response state")
}
