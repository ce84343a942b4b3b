package homeassistant

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/style"
)

// RESTStatesCache is the polling-only alternative to the streaming cache.
// It refreshes the full snapshot on a flat interval and offers the same
// read contract, but no change notifications.
type RESTStatesCache struct {
	rest     *RESTClient
	interval time.Duration

	states   map[EntityID]*State
	statesMu sync.RWMutex

	done      chan struct{}
	closeOnce sync.Once

	pr *log.Logger
}

var _ StateSource = (*RESTStatesCache)(nil)

// NewRESTStatesCache creates a polling cache refreshing every interval.
func NewRESTStatesCache(rest *RESTClient, interval time.Duration) *RESTStatesCache {
	if interval <= 0 {
		interval = time.Minute
	}

	return &RESTStatesCache{
		rest:     rest,
		interval: interval,
		states:   make(map[EntityID]*State),
		done:     make(chan struct{}),
		pr:       models.Printer.WithPrefix(lipgloss.NewStyle().Foreground(style.HABlue).Render("poll")),
	}
}

// Start begins polling in the background. The first refresh happens
// immediately, failures are logged and retried on the next tick.
func (rsc *RESTStatesCache) Start() {
	go func() {
		rsc.refresh()

		ticker := time.NewTicker(rsc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-rsc.done:
				return
			case <-ticker.C:
				rsc.refresh()
			}
		}
	}()
}

// Close stops polling.
func (rsc *RESTStatesCache) Close() {
	rsc.closeOnce.Do(func() { close(rsc.done) })
}

func (rsc *RESTStatesCache) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), restTimeout)
	defer cancel()

	states, err := rsc.rest.GetStates(ctx)
	if err != nil {
		rsc.pr.Warnf("%s refresh failed: %v", icons.ReconnectCircle, err)

		return
	}

	fresh := make(map[EntityID]*State, len(states))
	for _, state := range states {
		if state != nil {
			fresh[state.EntityID] = state
		}
	}

	rsc.statesMu.Lock()
	rsc.states = fresh
	rsc.statesMu.Unlock()

	rsc.pr.Debugf("%s refreshed %d entity states", icons.Home, len(fresh))
}

// GetState returns the cached state of the entity or nil.
func (rsc *RESTStatesCache) GetState(entityID EntityID) *State {
	rsc.statesMu.RLock()
	defer rsc.statesMu.RUnlock()

	return rsc.states[entityID]
}

// AllStates returns a snapshot of all cached entity states.
func (rsc *RESTStatesCache) AllStates() []*State {
	rsc.statesMu.RLock()
	defer rsc.statesMu.RUnlock()

	states := make([]*State, 0, len(rsc.states))
	for _, state := range rsc.states {
		states = append(states, state)
	}

	return states
}
