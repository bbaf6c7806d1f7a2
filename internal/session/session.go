package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"sw/ocpp/central/internal/logging"
	"sw/ocpp/central/internal/metrics"
	"sw/ocpp/central/internal/ocpp"
	"sw/ocpp/central/internal/telemetry"

	"github.com/gorilla/websocket"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
	"gopkg.in/tomb.v2"
)

// Params holds the collaborators of a Session. Only Codec is required.
type Params struct {
	Codec      *ocpp.Codec
	Handler    Handler
	Registry   *Registry
	Observer   FrameObserver
	Metrics    *metrics.Collector
	Clock      clock.Clock
	Config     Config
	RemoteAddr string
}

// Session owns the connection of one charge point. It correlates outgoing Calls with
// their replies, answers inbound Calls through its Handler and allows one outgoing
// Call in flight at a time.
type Session struct {
	chargePointId string
	remoteAddr    string
	conn          Conn
	codec         *ocpp.Codec
	handler       Handler
	registry      *Registry
	observer      FrameObserver
	metrics       *metrics.Collector
	clock         clock.Clock
	config        Config
	limiter       *rate.Limiter
	log           *logrus.Entry

	tomb     tomb.Tomb
	dyingCtx context.Context
	running  atomic.Bool
	state    atomic.Int32
	done     chan struct{}
	teardown sync.Once

	// outgoing is held from sending a Call until it is resolved.
	outgoing *semaphore.Weighted
	writeMu  sync.Mutex
	pending  *xsync.MapOf[string, *pendingCall]
	replies  chan *replySlot
}

// replySlot reserves the position of an inbound Call's reply in the write order.
type replySlot struct {
	uniqueId string
	action   string
	received time.Time
	reply    chan ocpp.Message
	cancel   context.CancelFunc
}

func New(chargePointId string, conn Conn, p Params) *Session {
	if p.Codec == nil {
		p.Codec = ocpp.NewCodec(nil)
	}
	if p.Handler == nil {
		p.Handler = HandlerFunc(notSupported)
	}
	if p.Clock == nil {
		p.Clock = clock.WallClock
	}
	defaults := DefaultConfig()
	if p.Config.ResponseTimeout <= 0 {
		p.Config.ResponseTimeout = defaults.ResponseTimeout
	}
	if p.Config.HandlerTimeout <= 0 {
		p.Config.HandlerTimeout = defaults.HandlerTimeout
	}
	if p.Config.ReplyQueueSize <= 0 {
		p.Config.ReplyQueueSize = defaults.ReplyQueueSize
	}

	s := &Session{
		chargePointId: chargePointId,
		remoteAddr:    p.RemoteAddr,
		conn:          conn,
		codec:         p.Codec,
		handler:       p.Handler,
		registry:      p.Registry,
		observer:      p.Observer,
		metrics:       p.Metrics,
		clock:         p.Clock,
		config:        p.Config,
		done:          make(chan struct{}),
		outgoing:      semaphore.NewWeighted(1),
		pending:       xsync.NewMapOf[string, *pendingCall](),
		replies:       make(chan *replySlot, p.Config.ReplyQueueSize),
		log: logging.Logger.WithFields(logrus.Fields{
			"chargePointId": chargePointId,
			"remoteAddr":    p.RemoteAddr,
		}),
	}
	if p.Config.MaxFramesPerSecond > 0 {
		burst := int(p.Config.MaxFramesPerSecond)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(p.Config.MaxFramesPerSecond), burst)
	}
	s.dyingCtx = s.tomb.Context(nil)
	return s
}

func notSupported(_ context.Context, _ *Session, call *ocpp.IncomingCall) (ocpp.Response, error) {
	return nil, ocpp.NewError(ocpp.NotSupported, call.UniqueId, call.ActionName)
}

func (s *Session) ChargePointId() string { return s.chargePointId }
func (s *Session) RemoteAddr() string    { return s.remoteAddr }

func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed when the session reached StateClosed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// PendingCount is the number of outgoing Calls awaiting their reply.
func (s *Session) PendingCount() int {
	return s.pending.Size()
}

// Run serves the connection until it closes, then tears the session down. It returns
// nil for a normal close by either side. Run may only be called once.
func (s *Session) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionClosed
	}
	s.metrics.SessionOpened()
	s.log.Info("session open")

	s.tomb.Go(func() error {
		s.tomb.Go(s.replyLoop)
		return s.readLoop()
	})

	<-s.tomb.Dying()
	s.state.Store(int32(StateClosing))
	s.conn.Close()
	err := s.tomb.Wait()

	s.close()
	s.metrics.SessionClosed()
	if err != nil {
		s.log.Warnf("session closed: %s", err)
	} else {
		s.log.Info("session closed")
	}
	return err
}

// Close ends the session. It does not wait; use Done for that.
func (s *Session) Close() error {
	s.tomb.Kill(nil)
	if s.running.CompareAndSwap(false, true) {
		err := s.conn.Close()
		s.close()
		return err
	}
	return nil
}

// close resolves every pending call and leaves the registry. It runs once.
func (s *Session) close() {
	s.teardown.Do(func() {
		s.state.Store(int32(StateClosing))
		s.pending.Range(func(uniqueId string, _ *pendingCall) bool {
			s.complete(uniqueId, nil, ErrSessionClosed)
			return true
		})
		if s.registry != nil {
			s.registry.Unregister(s.chargePointId, s)
		}
		s.state.Store(int32(StateClosed))
		close(s.done)
	})
}

func (s *Session) readLoop() error {
	for {
		messageType, text, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.tomb.Dying():
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Info("connection closed by charge point")
				s.tomb.Kill(nil)
				return nil
			}
			return errors.Annotate(err, "reading frame")
		}
		if messageType != websocket.TextMessage {
			return errors.Annotatef(ErrUnsupportedFrame, "frame type %d", messageType)
		}
		if s.limiter != nil {
			if err := s.limiter.Wait(s.dyingCtx); err != nil {
				return nil
			}
		}
		s.dispatch(text)
	}
}

func (s *Session) dispatch(text []byte) {
	s.log.Debug("RecvClient->: ", string(text))

	msg, err := s.codec.Decode(text, s.resolveAction)
	if err != nil {
		var failure *ocpp.DecodeFailure
		if !errors.As(err, &failure) {
			failure = &ocpp.DecodeFailure{Err: ocpp.NewError(ocpp.InternalError, "", err.Error())}
		}
		s.handleDecodeFailure(text, failure)
		return
	}

	switch m := msg.(type) {
	case *ocpp.IncomingCall:
		s.observe(Inbound, m.GetMessageType(), m.UniqueId, m.ActionName, text)
		s.handleCall(m)
	case *ocpp.IncomingCallResult:
		s.observe(Inbound, m.GetMessageType(), m.UniqueId, m.ActionName, text)
		if !s.complete(m.UniqueId, m.Payload, nil) {
			s.log.Warnf("dropping CallResult for unknown uniqueId %s", m.UniqueId)
		}
	case *ocpp.CallError:
		action, _ := s.resolveAction(m.UniqueId)
		s.observe(Inbound, m.GetMessageType(), m.UniqueId, action, text)
		if !s.complete(m.UniqueId, nil, m) {
			s.log.Warnf("dropping CallError for unknown uniqueId %s", m.UniqueId)
		}
	}
}

// Result and error frames are never answered. A malformed one fails the call it names.
func (s *Session) handleDecodeFailure(text []byte, failure *ocpp.DecodeFailure) {
	uniqueId := failure.Err.UniqueId
	action, _ := s.resolveAction(uniqueId)
	s.observe(Inbound, failure.MessageType, uniqueId, action, text)

	switch failure.MessageType {
	case ocpp.MessageTypeCallResult, ocpp.MessageTypeCallError:
		s.log.Warnf("invalid %s frame: %s", failure.MessageType, failure.Err)
		s.complete(uniqueId, nil, failure.Err)
		return
	}

	s.log.Warnf("invalid frame: %s", failure.Err)
	slot := &replySlot{
		uniqueId: uniqueId,
		received: s.clock.Now(),
		reply:    make(chan ocpp.Message, 1),
		cancel:   func() {},
	}
	slot.reply <- failure.Err.CallError()
	s.enqueue(slot)
}

func (s *Session) handleCall(call *ocpp.IncomingCall) {
	ctx, cancel := context.WithCancel(s.dyingCtx)
	slot := &replySlot{
		uniqueId: call.UniqueId,
		action:   call.ActionName,
		received: s.clock.Now(),
		reply:    make(chan ocpp.Message, 1),
		cancel:   cancel,
	}
	go s.invoke(ctx, call, slot)
	s.enqueue(slot)
}

// enqueue blocks the read loop once ReplyQueueSize replies are outstanding, which also
// holds back CallResults behind them. Every slot expires HandlerTimeout after it was
// received, so the stall ends within HandlerTimeout of the oldest queued Call.
func (s *Session) enqueue(slot *replySlot) {
	select {
	case s.replies <- slot:
	case <-s.tomb.Dying():
		slot.cancel()
	}
}

func (s *Session) invoke(ctx context.Context, call *ocpp.IncomingCall, slot *replySlot) {
	var reply ocpp.Message
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("handler panic for %s: %v", call.ActionName, r)
			reply = ocpp.NewError(ocpp.InternalError, call.UniqueId, fmt.Sprint(r)).CallError()
		}
		slot.reply <- reply
	}()

	response, err := s.handler.HandleCall(ctx, s, call)
	if err != nil {
		var ocppErr *ocpp.Error
		if errors.As(err, &ocppErr) {
			reply = ocppErr.WithUniqueId(call.UniqueId).CallError()
		} else {
			reply = ocpp.NewGenericError(err.Error(), call.UniqueId, "").CallError()
		}
		return
	}
	reply = &ocpp.OutgoingCallResult{UniqueId: call.UniqueId, Payload: response}
}

// replyLoop writes replies in the order their Calls were read.
func (s *Session) replyLoop() error {
	for {
		select {
		case <-s.tomb.Dying():
			return nil
		case slot := <-s.replies:
			if err := s.deliver(slot); err != nil {
				return err
			}
		}
	}
}

func (s *Session) deliver(slot *replySlot) error {
	defer slot.cancel()

	reply, ok := s.awaitReply(slot)
	if !ok {
		return nil
	}

	text, err := s.codec.Encode(reply)
	if err != nil {
		s.log.Errorf("cannot encode reply to %s [%s]: %s", slot.action, slot.uniqueId, err)
		reply = ocpp.NewError(ocpp.InternalError, slot.uniqueId, "").CallError()
		if text, err = s.codec.Encode(reply); err != nil {
			return err
		}
	}

	code := "200"
	if ce, ok := reply.(*ocpp.CallError); ok {
		code = string(ce.ErrorCode)
		s.metrics.CallErrorSent(code)
	}
	if err := s.write(reply, slot.action, text); err != nil {
		return err
	}
	if slot.action != "" {
		telemetry.TrackOcppRequest(s.chargePointId, s.remoteAddr, slot.uniqueId, slot.action, code, s.clock.Now().Sub(slot.received))
	}
	return nil
}

// awaitReply waits for the handler of slot until HandlerTimeout after the Call was
// received. Time spent queued behind earlier replies counts against it. It returns false
// when the session is dying.
func (s *Session) awaitReply(slot *replySlot) (ocpp.Message, bool) {
	select {
	case reply := <-slot.reply:
		return reply, true
	default:
	}

	timedOut := func() (ocpp.Message, bool) {
		s.log.Errorf("handler for %s [%s] timed out", slot.action, slot.uniqueId)
		return ocpp.NewError(ocpp.InternalError, slot.uniqueId, "handler timed out").CallError(), true
	}
	remaining := slot.received.Add(s.config.HandlerTimeout).Sub(s.clock.Now())
	if remaining <= 0 {
		return timedOut()
	}
	timer := s.clock.NewTimer(remaining)
	defer timer.Stop()

	select {
	case reply := <-slot.reply:
		return reply, true
	case <-timer.Chan():
		return timedOut()
	case <-s.tomb.Dying():
		return nil, false
	}
}

// write sends one encoded frame under the write mutex and the send timeout.
func (s *Session) write(msg ocpp.Message, action string, text []byte) error {
	s.writeMu.Lock()
	if s.config.SendTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.config.SendTimeout))
	}
	err := s.conn.WriteMessage(websocket.TextMessage, text)
	s.writeMu.Unlock()
	if err != nil {
		return errors.Annotatef(err, "writing %s %s", msg.GetMessageType(), msg.GetUniqueId())
	}

	s.log.Debug("<-SendClient: ", string(text))
	s.observe(Outbound, msg.GetMessageType(), msg.GetUniqueId(), action, text)
	return nil
}

func (s *Session) observe(direction Direction, messageType ocpp.MessageType, uniqueId string, action string, text []byte) {
	if direction == Inbound {
		label := messageType.String()
		if messageType == 0 {
			label = "Malformed"
		}
		s.metrics.FrameReceived(label)
	}
	if s.observer == nil {
		return
	}
	s.observer.ObserveFrame(Frame{
		ChargePointId: s.chargePointId,
		Direction:     direction,
		MessageType:   messageType,
		UniqueId:      uniqueId,
		Action:        action,
		Text:          text,
		Time:          s.clock.Now(),
	})
}

func (s *Session) resolveAction(uniqueId string) (string, bool) {
	p, ok := s.pending.Load(uniqueId)
	if !ok {
		return "", false
	}
	return p.action, true
}

// SendCall sends request to the charge point and returns a Future for its reply. It
// blocks while another outgoing Call is unresolved. An error is returned when the Call
// could not be started; delivery failures resolve the Future instead.
func (s *Session) SendCall(ctx context.Context, request ocpp.Request) (*Future, error) {
	action := request.Action()
	if _, ok := s.codec.Catalog().Feature(action); !ok {
		return nil, ocpp.NewError(ocpp.NotImplemented, "", fmt.Sprintf("unknown action '%s'", action))
	}
	call := &ocpp.OutgoingCall{UniqueId: ocpp.GenerateUniqueId(), ActionName: action, Payload: request}
	text, err := s.codec.Encode(call)
	if err != nil {
		return nil, errors.Annotatef(err, "encoding %s", action)
	}
	if s.State() != StateOpen {
		return nil, ErrSessionClosed
	}

	lockCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.dyingCtx, cancel)
	err = s.outgoing.Acquire(lockCtx, 1)
	stop()
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrSessionClosed
	}

	p := &pendingCall{action: action, future: newFuture(call.UniqueId, action), started: s.clock.Now()}

	// Registered before the write so a fast reply finds it.
	s.pending.Store(call.UniqueId, p)
	if s.State() != StateOpen {
		s.complete(call.UniqueId, nil, ErrSessionClosed)
		return p.future, nil
	}

	if err := s.write(call, action, text); err != nil {
		s.complete(call.UniqueId, nil, errors.Annotatef(err, "delivering %s", action))
		s.tomb.Kill(err)
		return p.future, nil
	}

	p.arm(func() clock.Timer {
		return s.clock.AfterFunc(s.config.ResponseTimeout, func() {
			s.complete(call.UniqueId, nil, errors.Timeoutf("%s response after %s", action, s.config.ResponseTimeout))
		})
	})
	return p.future, nil
}

// Request sends request and waits for its reply.
func (s *Session) Request(ctx context.Context, request ocpp.Request) (ocpp.Response, error) {
	f, err := s.SendCall(ctx, request)
	if err != nil {
		return nil, err
	}
	return f.Wait(ctx)
}

// complete resolves a pending call. Of a reply, its timeout, a delivery failure and
// teardown, only the first to remove the entry acts.
func (s *Session) complete(uniqueId string, response ocpp.Response, err error) bool {
	p, ok := s.pending.LoadAndDelete(uniqueId)
	if !ok {
		return false
	}
	p.settle()
	s.outgoing.Release(1)

	outcome := metrics.OutcomeResult
	var callErr *ocpp.CallError
	switch {
	case err == nil:
	case errors.As(err, &callErr):
		outcome = metrics.OutcomeCallError
	case errors.Is(err, errors.Timeout):
		outcome = metrics.OutcomeTimeout
		s.log.Warnf("no response to %s [%s]", p.action, uniqueId)
	case errors.Is(err, ErrSessionClosed):
		outcome = metrics.OutcomeClosed
	default:
		outcome = metrics.OutcomeFailed
	}
	s.metrics.CallCompleted(p.action, outcome, s.clock.Now().Sub(p.started))

	p.future.resolve(response, err)
	return true
}
