package homeassistant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/style"
	"github.com/mitchellh/mapstructure"
)

var (
	connectionTimeout  = time.Second * 5
	authTimeout        = time.Second * 10
	resultTimeout      = time.Second * 10
	keepaliveInterval  = time.Second * 30
	baseReconnectDelay = time.Second
	maxReconnectDelay  = time.Second * 30
	readLimit          = int64(1024000) // 1024kb
)

// HomeAssistant maintains one logical streaming session to the hub: it runs
// the auth handshake, bulk-loads all entity states into the local cache,
// subscribes to state_changed events and reconnects with bounded exponential
// backoff. It is the only writer of the state cache.
type HomeAssistant struct {
	wsURL   *url.URL
	httpURL *url.URL
	token   string

	// holds the current state of all entities, replaced wholesale on bulk
	// load and entry-wise on state_changed events
	states   map[EntityID]*State
	statesMu sync.RWMutex

	// fan-out of state events to the data-binding providers
	broker *Broker

	// map of the result handlers for sent messages/requests
	resultsHandler map[int64]chan ResultMsg
	handlersMu     sync.Mutex

	// unique message id for command/response correlation
	nonce atomic.Int64

	// failed connect cycles since the last successful authentication
	attempts int

	connState    atomic.Value
	connWatchers map[int64]func(ConnectionState)
	watchersMu   sync.Mutex
	nextWatcher  int64

	// websocket connection
	conn *websocket.Conn
	// lock for the websocket
	wsMutex sync.Mutex

	done      chan struct{}
	closeOnce sync.Once

	// printer
	pr *log.Logger
}

var _ StateSource = (*HomeAssistant)(nil)

// New creates a new HomeAssistant client. It does not connect yet; missing
// credentials are an error here and the callers' trigger for demo mode.
func New(rawURL string, token string) (*HomeAssistant, error) {
	if rawURL == "" {
		return nil, models.ErrEmptyURL
	} else if token == "" {
		return nil, models.ErrEmptyToken
	}

	httpURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	// create websocket URL
	wsURL := *httpURL
	switch httpURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	default:
		return nil, fmt.Errorf("%w: unsupported url scheme: %s", models.ErrEmptyURL, httpURL.Scheme)
	}

	homAss := &HomeAssistant{
		wsURL:   wsURL.JoinPath("/api/websocket"),
		httpURL: httpURL,
		token:   token,

		states: make(map[EntityID]*State),

		broker: NewBroker(),

		resultsHandler: make(map[int64]chan ResultMsg),

		connWatchers: make(map[int64]func(ConnectionState)),

		done: make(chan struct{}),

		pr: models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.HABlue).Render("HA")),
	}

	homAss.connState.Store(StateDisconnected)

	return homAss, nil
}

// Connect starts the connect/auth/subscribe/reconnect loop in the background.
func (ha *HomeAssistant) Connect() {
	go ha.run()
}

// Close tears the client down, cancelling any scheduled reconnect.
func (ha *HomeAssistant) Close() {
	ha.closeOnce.Do(func() {
		close(ha.done)

		ha.wsMutex.Lock()
		if ha.conn != nil {
			_ = ha.conn.Close(websocket.StatusNormalClosure, "shutdown")
			ha.conn = nil
		}
		ha.wsMutex.Unlock()

		ha.setConnectionState(StateDisconnected)
	})
}

func (ha *HomeAssistant) run() {
	for {
		select {
		case <-ha.done:
			return
		default:
		}

		ha.setConnectionState(StateConnecting)

		err := ha.session()

		ha.setConnectionState(StateDisconnected)

		// rejected credentials are fatal and user-correctable, every other
		// failure is transient and schedules a reconnect
		if errors.Is(err, models.ErrAuthInvalid) {
			ha.pr.Errorf("%s authentication rejected - not reconnecting", icons.ConnectionFailed)

			return
		}

		delay := reconnectDelay(ha.attempts)
		ha.attempts++

		ha.pr.Printf("%s connection lost (%v) - trying again in %.0fs...", icons.ReconnectCircle, err, delay.Seconds())

		select {
		case <-ha.done:
			return
		case <-time.After(delay):
		}
	}
}

// reconnectDelay is min(1s * 2^attempts, 30s).
func reconnectDelay(attempts int) time.Duration {
	if attempts >= 5 {
		return maxReconnectDelay
	}

	return baseReconnectDelay << attempts
}

// session runs one full connection cycle and blocks until the transport dies.
func (ha *HomeAssistant) session() error {
	ha.pr.Printf("%s connecting to %s", icons.ConnectionChain, ha.wsURL.String())

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	conn, _, err := websocket.Dial(ctx, ha.wsURL.String(), &websocket.DialOptions{})
	cancel()
	if err != nil {
		return err
	}

	// increase max size of a message for the connection (in bytes)
	conn.SetReadLimit(readLimit)

	ha.setConn(conn)
	defer func() {
		ha.setConn(nil)
		_ = conn.CloseNow()
		ha.failPending()
	}()

	if err := ha.authenticate(conn); err != nil {
		return err
	}

	ha.pr.Printf("%s successfully authenticated", icons.Key)

	// successful auth is the only signal that resets the backoff
	ha.attempts = 0
	ha.setConnectionState(StateConnected)

	readerErr := make(chan error, 1)
	go func() { readerErr <- ha.reader(conn) }()

	connDone := make(chan struct{})
	defer close(connDone)
	go ha.keepalive(connDone)

	if err := ha.loadStates(); err != nil {
		ha.pr.Error("failed to get states: ", err)

		return err
	}

	if err := ha.subscribeEvents(); err != nil {
		ha.pr.Error("failed to subscribe to events: ", err)

		return err
	}

	return <-readerErr
}

// authenticate runs the auth_required/auth/auth_ok handshake.
func (ha *HomeAssistant) authenticate(conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	var serverMsg VersionMsg

	// first message must be the auth_required prompt, we send nothing before
	if err := wsjson.Read(ctx, conn, &serverMsg); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	if serverMsg.Type != "auth_required" {
		return fmt.Errorf("%w: %s", models.ErrUnexpectedMessageType, serverMsg.Type)
	}

	// reply with auth message containing the token
	if err := wsjson.Write(ctx, conn, NewAuthMsg(ha.token)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := wsjson.Read(ctx, conn, &serverMsg); err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}

	switch serverMsg.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		return fmt.Errorf("%w: %s", models.ErrAuthInvalid, serverMsg.Message)
	default:
		return fmt.Errorf("%w: %s", models.ErrUnexpectedMessageType, serverMsg.Type)
	}
}

// loadStates fetches the full state snapshot, replaces the cache wholesale
// and notifies every subscriber once with the bulk-load event.
func (ha *HomeAssistant) loadStates() error {
	result, err := ha.callWithResponse(NewGetStatesMsg())
	if err != nil {
		return err
	}

	var states []*State

	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHooks(),
		Result:     &states,
	})

	if err := decoder.Decode(result.Result); err != nil {
		return fmt.Errorf("decoding get_states result failed: %w", err)
	}

	if len(states) == 0 {
		return models.ErrNoStatesReceived
	}

	fresh := make(map[EntityID]*State, len(states))
	for _, state := range states {
		if state != nil {
			fresh[state.EntityID] = state
		}
	}

	ha.statesMu.Lock()
	ha.states = fresh
	ha.statesMu.Unlock()

	ha.pr.Printf("%s fetched states for %d entities", icons.Home, len(fresh))

	ha.broker.Publish(StateEvent{Kind: EventBulkLoad})

	return nil
}

func (ha *HomeAssistant) subscribeEvents() error {
	msg := NewSubscribeMsg("state_changed")

	result, err := ha.callWithResponse(msg)
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("%w: subscription failed: %s", models.ErrUnexpectedMessageType, result.Error.Message)
	}

	ha.pr.Infof("%s subscribed to %s", icons.Sub, style.HABlueFrame("state_changed"))

	return nil
}

// keepalive sends a liveness probe on a fixed interval to detect silently
// dead transports. Pong responses are consumed and otherwise ignored.
func (ha *HomeAssistant) keepalive(connDone <-chan struct{}) {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-connDone:
			return
		case <-ticker.C:
			if _, err := ha.send(nil, NewPingMsg()); err != nil {
				ha.pr.Debugf("%s keepalive failed: %v", icons.Ping, err)

				return
			}
		}
	}
}

// reader handles all incoming messages for one connection, strictly in
// arrival order. Parsing failures of single messages are logged and
// swallowed, only transport errors end the session.
func (ha *HomeAssistant) reader(conn *websocket.Conn) error {
	for {
		var msg map[string]any

		if err := wsjson.Read(context.Background(), conn, &msg); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return models.ErrConnectionClosed
			}

			return err
		}

		if msg == nil {
			ha.pr.Error("received nil message")

			continue
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			ha.pr.Errorf("received message without type: %+v", msg)

			continue
		}

		switch msgType {
		case "event":
			ha.handleEventMessage(msg)
		case "result":
			ha.handleResultMessage(msg)
		case "pong":
			// keepalive response, nothing to do

		default:
			ha.pr.Warnf("❔ received unexpected %s message: %+v", style.Bold(msgType), msg)
		}
	}
}

func (ha *HomeAssistant) handleEventMessage(msg map[string]any) {
	var eventMsg EventMsg

	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHooks(),
		Result:     &eventMsg,
	})

	if err := decoder.Decode(msg); err != nil {
		ha.pr.Errorf("decoding incoming event failed: %+v | msg: %+v", err, msg)

		return
	}

	if eventMsg.Event == nil || eventMsg.Event.Type != "state_changed" {
		return
	}

	data := eventMsg.Event.Data

	// absent new_state means the hub removed the entity
	if data.NewState == nil {
		ha.statesMu.Lock()
		delete(ha.states, data.EntityID)
		ha.statesMu.Unlock()

		ha.broker.Publish(StateEvent{Kind: EventEntityRemoved, EntityID: data.EntityID})

		return
	}

	ha.statesMu.Lock()
	ha.states[data.EntityID] = data.NewState
	ha.statesMu.Unlock()

	ha.pr.Debugf("%s %s changed to %s", icons.Sub, data.EntityID.FmtString(), data.NewState.State)

	ha.broker.Publish(StateEvent{Kind: EventEntityChanged, EntityID: data.EntityID, State: data.NewState})
}

func (ha *HomeAssistant) handleResultMessage(msg map[string]any) {
	var resultMsg ResultMsg

	decoder, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: decodeHooks(),
		Result:     &resultMsg,
	})

	if err := decoder.Decode(msg); err != nil {
		ha.pr.Errorf("decoding incoming result failed: %+v | msg: %+v", err, msg)

		return
	}

	if !resultMsg.Success {
		ha.pr.Errorf(style.Gray(6).Render("#")+"%d | %s | %s", resultMsg.ID, resultMsg.Error.Code, resultMsg.Error.Message)
	}

	ha.handlersMu.Lock()
	done, ok := ha.resultsHandler[resultMsg.ID]
	ha.handlersMu.Unlock()

	if ok {
		done <- resultMsg
	}
}

// callWithResponse sends a command and waits for its correlated result. The
// timeout bounds the lifetime of any outstanding command, it does not close
// the connection.
func (ha *HomeAssistant) callWithResponse(msg Message) (*ResultMsg, error) {
	done := make(chan ResultMsg, 1)

	msgID, err := ha.send(done, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	defer ha.removeHandler(msgID)

	select {
	case result, ok := <-done:
		if !ok {
			return nil, models.ErrConnectionClosed
		}

		return &result, nil
	case <-time.After(resultTimeout):
		return nil, fmt.Errorf("%w: %s", models.ErrCommandTimeout, msg)
	}
}

// send writes a message with an increasing unique message id to the
// connection and returns the used id.
func (ha *HomeAssistant) send(done chan ResultMsg, msg Message) (int64, error) {
	ha.wsMutex.Lock()
	defer ha.wsMutex.Unlock()

	if ha.conn == nil {
		return 0, models.ErrNoConnectionToWriteTo
	}

	msgID := msg.SetID(ha.nonce.Add(1))

	if done != nil {
		ha.handlersMu.Lock()
		ha.resultsHandler[msgID] = done
		ha.handlersMu.Unlock()
	}

	if err := wsjson.Write(context.Background(), ha.conn, msg); err != nil {
		ha.removeHandler(msgID)

		return 0, err
	}

	return msgID, nil
}

func (ha *HomeAssistant) removeHandler(msgID int64) {
	ha.handlersMu.Lock()
	defer ha.handlersMu.Unlock()

	delete(ha.resultsHandler, msgID)
}

// failPending closes all outstanding result handlers so waiting callers see
// the connection loss instead of running into their timeout.
func (ha *HomeAssistant) failPending() {
	ha.handlersMu.Lock()
	defer ha.handlersMu.Unlock()

	for _, done := range ha.resultsHandler {
		close(done)
	}

	ha.resultsHandler = make(map[int64]chan ResultMsg)
}

func (ha *HomeAssistant) setConn(conn *websocket.Conn) {
	ha.wsMutex.Lock()
	defer ha.wsMutex.Unlock()

	ha.conn = conn
}

// GetState returns the cached state of the entity or nil.
func (ha *HomeAssistant) GetState(entityID EntityID) *State {
	ha.statesMu.RLock()
	defer ha.statesMu.RUnlock()

	return ha.states[entityID]
}

// AllStates returns a snapshot of all cached entity states.
func (ha *HomeAssistant) AllStates() []*State {
	ha.statesMu.RLock()
	defer ha.statesMu.RUnlock()

	states := make([]*State, 0, len(ha.states))
	for _, state := range ha.states {
		states = append(states, state)
	}

	return states
}

// Events returns the state event broker used by the data-binding providers.
func (ha *HomeAssistant) Events() *Broker {
	return ha.broker
}

// ConnectionState returns the current connection state.
func (ha *HomeAssistant) ConnectionState() ConnectionState {
	return ha.connState.Load().(ConnectionState)
}

// WatchConnection registers a callback for connection state transitions and
// returns its unsubscribe func.
func (ha *HomeAssistant) WatchConnection(callback func(ConnectionState)) func() {
	ha.watchersMu.Lock()
	defer ha.watchersMu.Unlock()

	ha.nextWatcher++
	id := ha.nextWatcher
	ha.connWatchers[id] = callback

	return func() {
		ha.watchersMu.Lock()
		defer ha.watchersMu.Unlock()

		delete(ha.connWatchers, id)
	}
}

func (ha *HomeAssistant) setConnectionState(state ConnectionState) {
	if ha.connState.Swap(state) == state {
		return
	}

	ha.watchersMu.Lock()
	watchers := make([]func(ConnectionState), 0, len(ha.connWatchers))
	for _, watcher := range ha.connWatchers {
		watchers = append(watchers, watcher)
	}
	ha.watchersMu.Unlock()

	for _, watcher := range watchers {
		watcher(state)
	}
}
