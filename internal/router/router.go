package router

import (
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rmacdonaldsmith/emitter-go/internal/correlation"
	"github.com/rmacdonaldsmith/emitter-go/internal/metrics"
	"github.com/rmacdonaldsmith/emitter-go/internal/routingtable"
	"github.com/rmacdonaldsmith/emitter-go/pkg/protocol"
)

// Handler types. A handler returning a non-nil error has it reported through
// the error handler; dispatch to other handlers continues.
type (
	MessageHandler  func(topic string, payload []byte) error
	PresenceHandler func(event *protocol.PresenceEvent) error
	KeygenHandler   func(resp *protocol.KeygenResponse) error
	LinkHandler     func(resp *protocol.LinkResponse) error
	MeHandler       func(resp *protocol.MeResponse) error
	ErrorHandler    func(err error)
)

// Config holds the router's collaborators and correlation limits.
type Config struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// RequestTTL expires pending keygen/link requests. Zero keeps them until replied.
	RequestTTL time.Duration
	// MaxPendingRequests bounds each correlation table. Zero is unbounded.
	MaxPendingRequests int
}

// Router owns the handler registries and dispatches inbound messages.
type Router struct {
	channels *routingtable.ReverseTrie[MessageHandler]
	presence *routingtable.ReverseTrie[PresenceHandler]
	keygen   *correlation.Table[KeygenHandler]
	links    *correlation.Table[LinkHandler]

	mu              sync.RWMutex
	defaultMessage  MessageHandler
	defaultPresence PresenceHandler
	me              MeHandler
	onError         ErrorHandler

	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a router with empty registries.
func New(config Config) *Router {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		channels: routingtable.NewReverseTrie[MessageHandler](),
		presence: routingtable.NewReverseTrie[PresenceHandler](),
		logger:   logger.Named("router"),
		metrics:  config.Metrics,
	}

	r.keygen = correlation.New[KeygenHandler](correlation.Config{
		TTL:        config.RequestTTL,
		MaxEntries: config.MaxPendingRequests,
		OnExpire:   r.expired(metrics.KindKeygen),
	})
	r.links = correlation.New[LinkHandler](correlation.Config{
		TTL:        config.RequestTTL,
		MaxEntries: config.MaxPendingRequests,
		OnExpire:   r.expired(metrics.KindLink),
	})
	return r
}

// RegisterChannel sets the handler for a channel pattern, replacing any previous one.
func (r *Router) RegisterChannel(pattern string, handler MessageHandler) {
	r.channels.Register(pattern, handler)
}

// ChannelHandler returns the handler registered for exactly pattern.
func (r *Router) ChannelHandler(pattern string) (MessageHandler, bool) {
	return r.channels.Lookup(pattern)
}

// UnregisterChannel removes the handler for pattern and reports whether one existed.
func (r *Router) UnregisterChannel(pattern string) bool {
	return r.channels.Unregister(pattern)
}

// RegisterPresence sets the presence handler for a channel pattern.
func (r *Router) RegisterPresence(pattern string, handler PresenceHandler) {
	r.presence.Register(pattern, handler)
}

// UnregisterPresence removes the presence handler for pattern.
func (r *Router) UnregisterPresence(pattern string) bool {
	return r.presence.Unregister(pattern)
}

// ExpectKeygen waits for the keygen reply carrying requestId id. It returns
// false when id is 0, in which case handler never fires.
func (r *Router) ExpectKeygen(id uint16, handler KeygenHandler) bool {
	return r.keygen.Register(id, handler)
}

// ExpectLink waits for the link reply carrying requestId id.
func (r *Router) ExpectLink(id uint16, handler LinkHandler) bool {
	return r.links.Register(id, handler)
}

// CancelRequest forgets the pending keygen or link request id without
// reporting an expiry. Unknown ids are ignored.
func (r *Router) CancelRequest(id uint16) {
	if id == 0 {
		return
	}
	r.keygen.Remove(id)
	r.links.Remove(id)
}

// DropPending forgets every pending request. Their handlers never fire.
func (r *Router) DropPending() {
	r.keygen.Purge()
	r.links.Purge()
}

// Pending returns the number of requests awaiting a reply.
func (r *Router) Pending() int {
	return r.keygen.Len() + r.links.Len()
}

// Channels returns the registered channel patterns.
func (r *Router) Channels() []string {
	regs := r.channels.Registrations()
	patterns := make([]string, 0, len(regs))
	for _, reg := range regs {
		patterns = append(patterns, reg.Pattern)
	}
	return patterns
}

// SetDefaultMessageHandler sets the handler for channel messages no pattern matched.
func (r *Router) SetDefaultMessageHandler(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultMessage = handler
}

// SetDefaultPresenceHandler sets the handler for presence events no pattern matched.
func (r *Router) SetDefaultPresenceHandler(handler PresenceHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultPresence = handler
}

// SetMeHandler sets the handler for me replies.
func (r *Router) SetMeHandler(handler MeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.me = handler
}

// SetErrorHandler sets the callback for asynchronous failures.
func (r *Router) SetErrorHandler(handler ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = handler
}

// HandleMessage dispatches one inbound message. It never panics.
func (r *Router) HandleMessage(topic string, payload []byte) {
	defer func() {
		if v := recover(); v != nil {
			r.metrics.Failed(metrics.KindUnknown, metrics.ReasonPanic)
			r.report(&PanicError{Topic: topic, Value: v, Stack: debug.Stack()})
		}
	}()

	if !protocol.IsServiceTopic(topic) {
		r.dispatchChannel(topic, payload)
		return
	}

	switch topic {
	case protocol.KeygenTopic:
		r.dispatchKeygen(topic, payload)
	case protocol.PresenceTopic:
		r.dispatchPresence(topic, payload)
	case protocol.LinkTopic:
		r.dispatchLink(topic, payload)
	case protocol.ErrorTopic:
		r.dispatchError(topic, payload)
	case protocol.MeTopic:
		r.dispatchMe(topic, payload)
	default:
		r.metrics.Unmatched(metrics.KindUnknown)
		r.logger.Debug("ignoring unknown service topic", zap.String("topic", topic))
	}
}

func (r *Router) dispatchChannel(topic string, payload []byte) {
	r.metrics.Received(metrics.KindChannel)

	// Match returns a fresh slice, so handlers may re-register during dispatch.
	handlers := r.channels.Match(topic)
	if len(handlers) == 0 {
		r.mu.RLock()
		fallback := r.defaultMessage
		r.mu.RUnlock()

		if fallback == nil {
			r.metrics.Unmatched(metrics.KindChannel)
			r.logger.Debug("no handler for message", zap.String("topic", topic))
			return
		}
		handlers = []MessageHandler{fallback}
	}

	for _, h := range handlers {
		r.invoke(metrics.KindChannel, topic, func() error { return h(topic, payload) })
	}
}

func (r *Router) dispatchKeygen(topic string, payload []byte) {
	r.metrics.Received(metrics.KindKeygen)

	resp, err := protocol.Decode[protocol.KeygenResponse](payload)
	if err != nil {
		r.decodeFailed(metrics.KindKeygen, topic, err)
		return
	}

	handler, ok := r.keygen.Take(resp.RequestID)
	if resp.Status != protocol.StatusOK {
		r.report(protocol.ErrorFromStatus(resp.Status))
		return
	}
	if !ok {
		r.metrics.Unmatched(metrics.KindKeygen)
		r.logger.Debug("no pending keygen request", zap.Uint16("requestId", resp.RequestID))
		return
	}

	r.invoke(metrics.KindKeygen, topic, func() error { return handler(resp) })
}

func (r *Router) dispatchLink(topic string, payload []byte) {
	r.metrics.Received(metrics.KindLink)

	resp, err := protocol.Decode[protocol.LinkResponse](payload)
	if err != nil {
		r.decodeFailed(metrics.KindLink, topic, err)
		return
	}

	handler, ok := r.links.Take(resp.RequestID)
	if resp.Status != protocol.StatusOK {
		r.report(protocol.ErrorFromStatus(resp.Status))
		return
	}
	if !ok {
		r.metrics.Unmatched(metrics.KindLink)
		r.logger.Debug("no pending link request", zap.Uint16("requestId", resp.RequestID))
		return
	}

	r.invoke(metrics.KindLink, topic, func() error { return handler(resp) })
}

func (r *Router) dispatchPresence(topic string, payload []byte) {
	r.metrics.Received(metrics.KindPresence)

	event, err := protocol.Decode[protocol.PresenceEvent](payload)
	if err != nil {
		r.decodeFailed(metrics.KindPresence, topic, err)
		return
	}

	handlers := r.presence.Match(event.Channel)
	if len(handlers) == 0 {
		r.mu.RLock()
		fallback := r.defaultPresence
		r.mu.RUnlock()

		if fallback == nil {
			r.metrics.Unmatched(metrics.KindPresence)
			r.logger.Debug("no presence handler", zap.String("channel", event.Channel))
			return
		}
		handlers = []PresenceHandler{fallback}
	}

	for _, h := range handlers {
		r.invoke(metrics.KindPresence, topic, func() error { return h(event) })
	}
}

func (r *Router) dispatchError(topic string, payload []byte) {
	r.metrics.Received(metrics.KindError)

	event, err := protocol.Decode[protocol.ErrorEvent](payload)
	if err != nil {
		r.decodeFailed(metrics.KindError, topic, err)
		return
	}

	// A failed request gets no other reply.
	r.CancelRequest(event.RequestID)
	r.report(protocol.NewError(event.Status, event.Message))
}

func (r *Router) dispatchMe(topic string, payload []byte) {
	r.metrics.Received(metrics.KindMe)

	resp, err := protocol.Decode[protocol.MeResponse](payload)
	if err != nil {
		r.decodeFailed(metrics.KindMe, topic, err)
		return
	}

	r.mu.RLock()
	handler := r.me
	r.mu.RUnlock()
	if handler == nil {
		r.metrics.Unmatched(metrics.KindMe)
		return
	}

	r.invoke(metrics.KindMe, topic, func() error { return handler(resp) })
}

// invoke runs one handler, converting a returned error or a panic into a
// reported failure.
func (r *Router) invoke(kind, topic string, fn func() error) {
	defer func() {
		if v := recover(); v != nil {
			r.metrics.Failed(kind, metrics.ReasonPanic)
			r.logger.Warn("handler panicked", zap.String("topic", topic), zap.Any("panic", v))
			r.report(&PanicError{Topic: topic, Value: v, Stack: debug.Stack()})
		}
	}()

	if err := fn(); err != nil {
		r.metrics.Failed(kind, metrics.ReasonHandler)
		r.report(&HandlerError{Topic: topic, Err: err})
	}
}

func (r *Router) decodeFailed(kind, topic string, err error) {
	r.metrics.Failed(kind, metrics.ReasonDecode)
	r.report(&DecodeError{Topic: topic, Err: err})
}

// report delivers err to the error handler, or drops it when none is set.
func (r *Router) report(err error) {
	r.mu.RLock()
	handler := r.onError
	r.mu.RUnlock()

	if handler == nil {
		r.logger.Debug("dropping error, no error handler", zap.Error(err))
		return
	}

	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("error handler panicked", zap.Any("panic", v), zap.NamedError("reported", err))
		}
	}()
	handler(err)
}

func (r *Router) expired(kind string) func(id uint16) {
	return func(id uint16) {
		r.metrics.Failed(kind, metrics.ReasonExpired)
		r.logger.Debug("pending request expired", zap.String("kind", kind), zap.Uint16("requestId", id))
	}
}
