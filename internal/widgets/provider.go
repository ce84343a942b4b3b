package widgets

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-co-op/gocron"
	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/style"
	"github.com/mitchellh/mapstructure"
)

// Snapshot is what a provider exposes to the rendering layer: the derived
// widget data plus whether first data is still outstanding.
type Snapshot struct {
	Data      any       `json:"data"`
	Loading   bool      `json:"loading"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is one data-binding per widget instance.
type Provider interface {
	ID() string
	Family() string
	Snapshot() Snapshot
	Close()
}

// Deps are the collaborators handed to every provider. Source and Events are
// nil when no hub credentials are configured, which switches every provider
// into demo mode.
type Deps struct {
	Source    homeassistant.StateSource
	Events    *homeassistant.Broker
	REST      *homeassistant.RESTClient
	Scheduler *gocron.Scheduler
	Demo      bool
	Pr        *log.Logger

	// Refresh is the fast-path re-derive interval used when no event broker
	// is wired (poll mode). Zero means one minute.
	Refresh time.Duration

	// OnUpdate is called with every fresh snapshot, used for the browser
	// push stream.
	OnUpdate func(id string, snap Snapshot)
}

func (d Deps) demoMode() bool {
	return d.Demo || d.Source == nil
}

// binding is the shared plumbing embedded by every provider: the derived
// value, the watched-entity set, the broker subscription and the slow-path
// scheduler jobs.
type binding struct {
	id     string
	family string

	deps Deps
	pr   *log.Logger

	mu        sync.RWMutex
	data      any
	loading   bool
	updatedAt time.Time

	watched mapset.Set[homeassistant.EntityID]

	unsubscribe func()

	onUpdate func(id string, snap Snapshot)
}

func newBinding(id, family string, deps Deps) binding {
	pr := deps.Pr
	if pr == nil {
		pr = models.Printer
	}

	return binding{
		id:       id,
		family:   family,
		deps:     deps,
		loading:  true,
		watched:  mapset.NewSet[homeassistant.EntityID](),
		onUpdate: deps.OnUpdate,
		pr:       pr.WithPrefix(style.DashStyle.Render(family)),
	}
}

func (b *binding) ID() string { return b.id }

func (b *binding) Family() string { return b.family }

func (b *binding) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Snapshot{Data: b.data, Loading: b.loading, UpdatedAt: b.updatedAt}
}

// set publishes a new derived value. First data clears the loading flag for
// good, later faults keep the last-known value instead.
func (b *binding) set(data any) {
	b.mu.Lock()
	b.data = data
	b.loading = false
	b.updatedAt = time.Now()
	notify := b.onUpdate
	b.mu.Unlock()

	if notify != nil {
		notify(b.id, b.Snapshot())
	}
}

// watch adds entity ids to the set the subscription callback filters on.
func (b *binding) watch(entityIDs ...homeassistant.EntityID) {
	for _, entityID := range entityIDs {
		if entityID.ID != "" {
			b.watched.Add(entityID)
		}
	}
}

// subscribe registers the fast-path callback: a bulk load re-derives
// unconditionally, entity events only when the id is watched.
func (b *binding) subscribe(derive func()) {
	b.subscribeFiltered(func(event homeassistant.StateEvent) bool {
		return b.watched.Contains(event.EntityID)
	}, derive)
}

// subscribeFiltered is subscribe with a custom entity filter, for providers
// watching dynamic id sets (e.g. persistent notifications).
func (b *binding) subscribeFiltered(match func(homeassistant.StateEvent) bool, derive func()) {
	// poll mode has no change notifications, re-derive on the refresh
	// interval instead
	if b.deps.Events == nil {
		refresh := b.deps.Refresh
		if refresh <= 0 {
			refresh = time.Minute
		}

		b.every(refresh, derive)

		return
	}

	b.unsubscribe = b.deps.Events.Subscribe(func(event homeassistant.StateEvent) {
		if event.Kind == homeassistant.EventBulkLoad || match(event) {
			derive()
		}
	})
}

// every schedules a slow-path task, first run immediate.
func (b *binding) every(interval time.Duration, task func()) {
	if b.deps.Scheduler == nil {
		return
	}

	if _, err := b.deps.Scheduler.Every(interval).Tag(b.id).StartImmediately().Do(task); err != nil {
		b.pr.Warnf("%s scheduling %s job failed: %v", icons.Stopwatch, b.family, err)
	}
}

func (b *binding) Close() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}

	if b.deps.Scheduler != nil {
		_ = b.deps.Scheduler.RemoveByTag(b.id)
	}
}

// sideCache retains slow-path results (history, forecasts, events) across
// fast-path re-derivations, with a ttl to avoid refetch storms. Stale values
// stay readable until replaced.
type sideCache[T any] struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]sideEntry[T]
}

type sideEntry[T any] struct {
	value         T
	lastFetchedAt time.Time
}

func newSideCache[T any](ttl time.Duration) *sideCache[T] {
	return &sideCache[T]{ttl: ttl, entries: make(map[string]sideEntry[T])}
}

func (c *sideCache[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]

	return entry.value, ok
}

func (c *sideCache[T]) put(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = sideEntry[T]{value: value, lastFetchedAt: time.Now()}
}

// fresh reports whether the entry is younger than the ttl.
func (c *sideCache[T]) fresh(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]

	return ok && time.Since(entry.lastFetchedAt) < c.ttl
}

// factories maps widget types to their provider constructors.
var factories = map[string]func(cfg dashboard.WidgetConfig, deps Deps) (Provider, error){
	"temperature":   newTemperatureProvider,
	"weather":       newWeatherProvider,
	"electricity":   newElectricityProvider,
	"person":        newPersonProvider,
	"vehicle":       newVehicleProvider,
	"sensor":        newSensorProvider,
	"sensorgrid":    newSensorGridProvider,
	"notifications": newNotificationsProvider,
	"pollen":        newPollenProvider,
	"foodmenu":      newFoodMenuProvider,
	"calendar":      newCalendarProvider,
	"rss":           newRSSProvider,
}

// NewProvider builds the provider for one widget config.
func NewProvider(cfg dashboard.WidgetConfig, deps Deps) (Provider, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownWidgetType, cfg.Type)
	}

	return factory(cfg, deps)
}

// decodeOptions maps a widget's free-form options onto its typed config.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			homeassistant.StringToEntityIDHookFunc(),
		),
		Result: out,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(options)
}

// Registry owns the providers built from the dashboard configuration.
type Registry struct {
	deps Deps

	mu        sync.RWMutex
	providers map[string]Provider

	pr *log.Logger
}

// NewRegistry creates the registry. When no scheduler is injected it owns a
// fresh one and starts it.
func NewRegistry(deps Deps) *Registry {
	if deps.Pr == nil {
		deps.Pr = models.Printer
	}

	if deps.Scheduler == nil {
		deps.Scheduler = gocron.NewScheduler(time.Local)
		deps.Scheduler.StartAsync()
	}

	return &Registry{
		deps:      deps,
		providers: make(map[string]Provider),
		pr:        deps.Pr.WithPrefix(style.DashStyle.Render("widgets")),
	}
}

// OnUpdate sets the callback invoked with every fresh provider snapshot.
// Must be set before Reload.
func (r *Registry) OnUpdate(callback func(id string, snap Snapshot)) {
	r.deps.OnUpdate = callback
}

// Reload tears down the current providers and builds fresh ones from the
// given configuration. A widget that fails to build is skipped, it never
// takes the others down.
func (r *Registry) Reload(cfg *dashboard.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, provider := range r.providers {
		provider.Close()
	}

	r.providers = make(map[string]Provider, len(cfg.Widgets))

	for _, widget := range cfg.Widgets {
		provider, err := NewProvider(widget, r.deps)
		if err != nil {
			r.pr.Warnf("%s skipping widget %s: %v", icons.Widget, widget.ID, err)

			continue
		}

		r.providers[widget.ID] = provider
	}

	r.pr.Printf("%s loaded %d widgets", icons.Widget, len(r.providers))
}

// Snapshot returns the current snapshot of one widget.
func (r *Registry) Snapshot(id string) (Snapshot, bool) {
	r.mu.RLock()
	provider, ok := r.providers[id]
	r.mu.RUnlock()

	if !ok {
		return Snapshot{}, false
	}

	return provider.Snapshot(), true
}

// Snapshots returns the current snapshots of all widgets, keyed by id.
func (r *Registry) Snapshots() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make(map[string]Snapshot, len(r.providers))
	for id, provider := range r.providers {
		snapshots[id] = provider.Snapshot()
	}

	return snapshots
}

// Close tears down all providers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, provider := range r.providers {
		provider.Close()
	}

	r.providers = make(map[string]Provider)
}
