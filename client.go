package mq

import (
	"context"
	"fmt"
	"sync"
)

// Client is the public entry point: it owns configuration, the listener
// registry and event bus (both of which survive reconnects), and drives the
// reconnect controller (C7) that repeatedly attaches fresh sessions across
// the lifetime of the connection.
type Client struct {
	cfg       *ClientConfig
	listeners *listenerRegistry
	events    *eventBus
	strategy  ReconnectStrategy

	mu      sync.Mutex
	current *session
	started bool
	closed  bool
	doneCh  chan struct{}

	connectTok *Token[struct{}]
}

// NewClient assembles a Client from the given options. WithTransport is
// required; every other option has a default matching defaultConfig.
func NewClient(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("mq: WithTransport is required")
	}

	strategy := cfg.ReconnectOpts.Strategy
	if strategy == nil {
		strategy = NewDefaultReconnectStrategy(cfg.ReconnectOpts.MaxAttempts, cfg.ReconnectOpts.Interval)
	}

	return &Client{
		cfg:        cfg,
		listeners:  newListenerRegistry(),
		events:     newEventBus(),
		strategy:   strategy,
		doneCh:     make(chan struct{}),
		connectTok: newToken[struct{}](),
	}, nil
}

// Connect starts the reconnect controller and blocks until the first CONNACK
// succeeds or the client gives up retrying. Calling Connect more than once
// just waits on the same outcome.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if !c.started {
		c.started = true
		c.events.on(EventConnect, func(any) {
			c.strategy.reset()
			c.connectTok.complete(struct{}{}, nil)
		})
		go c.runController(ctx)
	}
	c.mu.Unlock()

	_, err := c.connectTok.Wait(ctx)
	return err
}

// runController is the reconnect controller (C7): it re-attaches a fresh
// session after every non-clean termination, consulting the reconnect
// strategy between attempts.
func (c *Client) runController(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.closed = true
		close(c.doneCh)
		c.mu.Unlock()
	}()

	for {
		sess := newSession(c.cfg, c.cfg.ConnectRequest, c.listeners, c.events)

		c.mu.Lock()
		c.current = sess
		c.mu.Unlock()

		err := sess.attach(ctx)

		if ctx.Err() != nil {
			c.connectTok.complete(struct{}{}, ctx.Err())
			return
		}

		if !c.cfg.AutoReconnect {
			c.connectTok.complete(struct{}{}, err)
			return
		}

		if !c.strategy.should(err) {
			c.connectTok.complete(struct{}{}, err)
			return
		}

		if waitErr := c.strategy.wait(ctx); waitErr != nil {
			c.connectTok.complete(struct{}{}, waitErr)
			return
		}
	}
}

// activeSession returns the current session, or ErrClientClosed /
// ErrSessionClosed if there isn't one to act on.
func (c *Client) activeSession() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.current == nil {
		return nil, ErrSessionClosed
	}
	return c.current, nil
}

// submit runs fn on sess's owner goroutine and returns the Token it
// produces, or an error if sess or ctx ends first.
func submit[T any](ctx context.Context, sess *session, fn func(*session) *Token[T]) (*Token[T], error) {
	result := make(chan *Token[T], 1)
	cmd := func(s *session) { result <- fn(s) }

	select {
	case sess.cmdCh <- cmd:
	case <-sess.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case tok := <-result:
		return tok, nil
	case <-sess.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect requests session termination: force=true closes the transport
// immediately, force=false sends DISCONNECT first and lets outstanding
// writes drain. It blocks until the session reaches its terminal state.
func (c *Client) Disconnect(ctx context.Context, force bool) error {
	sess, err := c.activeSession()
	if err != nil {
		return err
	}

	select {
	case sess.cmdCh <- func(s *session) { s.requestDisconnect(force) }:
	case <-sess.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-sess.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends an application message. QoS 0 completes the returned Token
// as soon as the packet is handed to the writer; QoS 1 on PUBACK; QoS 2 on
// PUBCOMP.
func (c *Client) Publish(ctx context.Context, req PublishRequest) (*Token[PublishResult], error) {
	if err := validatePublishTopic(req.Topic, c.cfg); err != nil {
		return nil, err
	}
	if err := validatePayload(req.Payload, c.cfg); err != nil {
		return nil, err
	}

	sess, err := c.activeSession()
	if err != nil {
		return nil, err
	}
	return submit(ctx, sess, func(s *session) *Token[PublishResult] {
		return s.startPublish(req)
	})
}

// Subscribe issues a SUBSCRIBE and returns a Token completing with the
// granted QoS list from SUBACK.
func (c *Client) Subscribe(ctx context.Context, subs []Subscription) (*Token[SubscribeResult], error) {
	if len(subs) == 0 {
		return nil, fmt.Errorf("mq: subscribe requires at least one subscription")
	}
	for _, sub := range subs {
		if err := validateSubscribeTopic(sub.Filter, c.cfg); err != nil {
			return nil, err
		}
	}

	sess, err := c.activeSession()
	if err != nil {
		return nil, err
	}
	return submit(ctx, sess, func(s *session) *Token[SubscribeResult] {
		return s.startSubscribe(subs)
	})
}

// Unsubscribe issues an UNSUBSCRIBE and returns a Token completing on
// UNSUBACK.
func (c *Client) Unsubscribe(ctx context.Context, filters []string) (*Token[UnsubscribeResult], error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("mq: unsubscribe requires at least one filter")
	}

	sess, err := c.activeSession()
	if err != nil {
		return nil, err
	}
	return submit(ctx, sess, func(s *session) *Token[UnsubscribeResult] {
		return s.startUnsubscribe(filters)
	})
}

// Listen registers a callback invoked for every inbound message whose topic
// matches filter. Listeners are owned by the Client, not the session, so
// they survive reconnects.
func (c *Client) Listen(filter string, handler MessageHandler) (ListenerHandle, error) {
	if err := validateSubscribeTopic(filter, c.cfg); err != nil {
		return "", err
	}
	return c.listeners.add(filter, handler), nil
}

// RemoveListener unregisters a listener previously returned by Listen.
func (c *Client) RemoveListener(handle ListenerHandle) bool {
	return c.listeners.remove(handle)
}

// StartFlow registers a caller-supplied Flow (the generic escape hatch) on
// the current session and returns its id, which can later be passed to
// StopFlow.
func (c *Client) StartFlow(ctx context.Context, factory func() Flow) (FlowID, error) {
	sess, err := c.activeSession()
	if err != nil {
		return "", err
	}

	result := make(chan struct {
		id  FlowID
		err error
	}, 1)
	cmd := func(s *session) {
		id, err := s.startCustomFlow(factory())
		result <- struct {
			id  FlowID
			err error
		}{id, err}
	}

	select {
	case sess.cmdCh <- cmd:
	case <-sess.done:
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-result:
		return r.id, r.err
	case <-sess.done:
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// StopFlow cancels a flow started via StartFlow before it completed,
// calling its Fail method with ErrFlowStopped. It reports whether the flow
// was still registered.
func (c *Client) StopFlow(ctx context.Context, id FlowID) (bool, error) {
	sess, err := c.activeSession()
	if err != nil {
		return false, err
	}

	result := make(chan bool, 1)
	cmd := func(s *session) { result <- s.stopFlow(id) }

	select {
	case sess.cmdCh <- cmd:
	case <-sess.done:
		return false, ErrSessionClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case ok := <-result:
		return ok, nil
	case <-sess.done:
		return false, ErrSessionClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Ready reports whether the current session has an active, acknowledged
// connection.
func (c *Client) Ready() bool {
	c.mu.Lock()
	sess := c.current
	c.mu.Unlock()
	return sess != nil && sess.readyFlag.Load()
}

// Disconnected reports whether the current session has reached a terminal
// state.
func (c *Client) Disconnected() bool {
	c.mu.Lock()
	sess := c.current
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return true
	}
	return sess != nil && sess.doneFlag.Load()
}

// On registers an event handler. event is one of EventConnect,
// EventDisconnect, EventMessage, EventError, or a packet-type name.
func (c *Client) On(event string, handler EventHandler) {
	c.events.on(event, handler)
}
