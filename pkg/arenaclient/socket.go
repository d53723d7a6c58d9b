package arenaclient

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/pkg/protocol"
)

type SocketState int

const (
	StateDisconnected SocketState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s SocketState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "disconnected"
}

var ErrNotConnected = errors.New("socket not connected")

type EventCallback func(protocol.Event)

type StateCallback func(SocketState)

// Socket is a reconnecting websocket bound to one participant
// identity. Incoming events fan out to registered callbacks; intents
// go out through the typed senders below.
type Socket struct {
	wsURL string

	conn   *websocket.Conn
	state  SocketState
	stateM sync.RWMutex

	eventCbs []EventCallback
	stateCbs []StateCallback
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// NewSocket builds a socket for the /ws endpoint of baseURL
// ("http://host:port"), identifying as playerID.
func NewSocket(baseURL, playerID string, maxReconnectAttempts int) *Socket {
	wsURL := "ws" + strings.TrimPrefix(strings.TrimRight(baseURL, "/"), "http") +
		"/ws?player=" + url.QueryEscape(playerID)
	return &Socket{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		stopCh:               make(chan struct{}),
	}
}

func (s *Socket) Connect(ctx context.Context) error {
	s.stateM.Lock()
	if s.state == StateConnected || s.state == StateConnecting {
		s.stateM.Unlock()
		return nil
	}
	s.stateM.Unlock()

	s.stateM.Lock()
	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())
	s.stateM.Unlock()
	s.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.wsURL, nil)
	if err != nil {
		s.setState(StateFailed)
		s.scheduleReconnect()
		return err
	}

	s.stateM.Lock()
	s.conn = conn
	s.stateM.Unlock()
	s.setState(StateConnected)

	s.wg.Add(2)
	go s.listen()
	go s.pingLoop()
	return nil
}

// CreateGame asks the server for a fresh match; empty matchID lets the
// server generate one (returned in the gameCreated event).
func (s *Socket) CreateGame(ctx context.Context, matchID string) error {
	return s.sendIntent(ctx, protocol.Intent{Type: protocol.TypeCreateGame, MatchID: matchID})
}

func (s *Socket) JoinGame(ctx context.Context, matchID string) error {
	return s.sendIntent(ctx, protocol.Intent{Type: protocol.TypeJoinGame, MatchID: matchID})
}

func (s *Socket) MakeMove(ctx context.Context, matchID, from, to, promotion string) error {
	return s.sendIntent(ctx, protocol.Intent{
		Type:      protocol.TypeMakeMove,
		MatchID:   matchID,
		From:      from,
		To:        to,
		Promotion: promotion,
	})
}

func (s *Socket) ResignGame(ctx context.Context, matchID string) error {
	return s.sendIntent(ctx, protocol.Intent{Type: protocol.TypeResignGame, MatchID: matchID})
}

func (s *Socket) sendIntent(ctx context.Context, intent protocol.Intent) error {
	s.stateM.RLock()
	conn := s.conn
	s.stateM.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	return wsjson.Write(ctx, conn, intent)
}

func (s *Socket) rootContext() context.Context {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.rootCtx
}

func (s *Socket) listen() {
	defer s.wg.Done()
	ctx := s.rootContext()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.stateM.RLock()
		conn := s.conn
		s.stateM.RUnlock()
		if conn == nil {
			return
		}
		var ev protocol.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if s.isStopping() {
				return
			}
			s.setState(StateDisconnected)
			_ = s.closeConn(websocket.StatusGoingAway, "reconnect")
			s.scheduleReconnect()
			return
		}

		s.cbM.RLock()
		callbacks := make([]EventCallback, len(s.eventCbs))
		copy(callbacks, s.eventCbs)
		s.cbM.RUnlock()
		for _, cb := range callbacks {
			if cb != nil {
				cb(ev)
			}
		}
	}
}

func (s *Socket) pingLoop() {
	defer s.wg.Done()
	rootCtx := s.rootContext()
	t := time.NewTicker(s.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			s.stateM.RLock()
			conn := s.conn
			s.stateM.RUnlock()
			if conn == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= 2 {
					if s.isStopping() {
						return
					}
					s.setState(StateDisconnected)
					_ = s.closeConn(websocket.StatusGoingAway, "ping failure")
					s.scheduleReconnect()
					failures = 0
				}
				continue
			}
			failures = 0
		}
	}
}

func (s *Socket) scheduleReconnect() {
	if s.maxReconnectAttempts <= 0 {
		return
	}
	s.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
			select {
			case <-s.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(s.rootContext(), 10*time.Second)
			conn, _, err := websocket.Dial(dialCtx, s.wsURL, nil)
			cancel()
			if err != nil {
				continue
			}

			s.stateM.Lock()
			s.conn = conn
			s.stateM.Unlock()
			s.setState(StateConnected)

			s.wg.Add(2)
			go s.listen()
			go s.pingLoop()
			return
		}
		s.setState(StateFailed)
	}()
}

func (s *Socket) OnEvent(cb EventCallback) {
	s.cbM.Lock()
	s.eventCbs = append(s.eventCbs, cb)
	s.cbM.Unlock()
}

func (s *Socket) OnStateChange(cb StateCallback) {
	s.cbM.Lock()
	s.stateCbs = append(s.stateCbs, cb)
	s.cbM.Unlock()
}

func (s *Socket) State() SocketState {
	s.stateM.RLock()
	defer s.stateM.RUnlock()
	return s.state
}

func (s *Socket) setState(state SocketState) {
	s.stateM.Lock()
	s.state = state
	s.stateM.Unlock()

	s.cbM.RLock()
	callbacks := make([]StateCallback, len(s.stateCbs))
	copy(callbacks, s.stateCbs)
	s.cbM.RUnlock()
	for _, cb := range callbacks {
		if cb != nil {
			cb(state)
		}
	}
}

func (s *Socket) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	_ = s.closeConn(websocket.StatusNormalClosure, "close")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		s.stateM.RLock()
		cancel := s.rootCancel
		s.stateM.RUnlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}
}

func (s *Socket) closeConn(code websocket.StatusCode, reason string) error {
	s.stateM.Lock()
	conn := s.conn
	s.conn = nil
	s.stateM.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(code, reason)
}

func (s *Socket) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}
