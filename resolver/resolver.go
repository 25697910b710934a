// Package resolver turns page requests into content queries and tracks each
// query through Pending to a terminal state.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	"github.com/theemilyd/react-riftsurge/content"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultMemoSize     = 256
	DefaultMenuLocation = "PRIMARY"

	DefaultPostsPerPage          = 10
	DefaultPortfolioItemsPerPage = 12
	HomePortfolioPreview         = 6
)

// Fetcher is satisfied by *content.Client.
type Fetcher interface {
	Fetch(ctx context.Context, query content.Query, variables map[string]any, out any) error
}

// QueryOptions tunes a class of queries. A zero StaleTime disables the memo.
type QueryOptions struct {
	Retries    int
	RetryDelay time.Duration
	StaleTime  time.Duration
}

// Tuning holds the QueryOptions for each class of query.
type Tuning struct {
	Page       QueryOptions
	Collection QueryOptions
	Detail     QueryOptions
	Menu       QueryOptions
	Settings   QueryOptions
}

func DefaultTuning() Tuning {
	return Tuning{
		Page:       QueryOptions{Retries: 2, RetryDelay: time.Second},
		Collection: QueryOptions{Retries: 2, RetryDelay: time.Second, StaleTime: 5 * time.Minute},
		Detail:     QueryOptions{Retries: 0},
		Menu:       QueryOptions{Retries: 2, RetryDelay: time.Second, StaleTime: time.Hour},
		Settings:   QueryOptions{Retries: 2, RetryDelay: time.Second, StaleTime: 24 * time.Hour},
	}
}

type Options struct {
	Logger       zerolog.Logger
	FetchTimeout time.Duration
	MemoSize     int
	Tuning       *Tuning
}

// CollectionParams selects a page of a collection.
type CollectionParams struct {
	First    int
	After    string
	Category string
}

type memoEntry struct {
	outcome any
	expires time.Time
}

type Resolver struct {
	fetcher      Fetcher
	logger       zerolog.Logger
	fetchTimeout time.Duration
	tuning       Tuning

	memo     *expirable.LRU[string, memoEntry]
	flight   singleflight.Group
	inflight sync.WaitGroup
}

func New(fetcher Fetcher, o Options) *Resolver {
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.MemoSize <= 0 {
		o.MemoSize = DefaultMemoSize
	}
	tuning := DefaultTuning()
	if o.Tuning != nil {
		tuning = *o.Tuning
	}

	return &Resolver{
		fetcher:      fetcher,
		logger:       o.Logger,
		fetchTimeout: o.FetchTimeout,
		tuning:       tuning,
		memo:         expirable.NewLRU[string, memoEntry](o.MemoSize, nil, tuning.longestStaleTime()),
	}
}

// Open starts a view for one render. When static is true every query on the
// view settles to StaticFallback without touching the backend.
func (rv *Resolver) Open(ctx context.Context, static bool) *View {
	if ctx == nil {
		ctx = context.Background()
	}
	return &View{
		ctx:    ctx,
		static: static,
		closed: make(chan struct{}),
	}
}

// Purge drops every memoised outcome.
func (rv *Resolver) Purge() {
	rv.memo.Purge()
}

// Shutdown waits for in-flight fetches to finish, or for ctx to be done.
func (rv *Resolver) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		rv.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Page fetches a page by its URI. The home page is "/".
func (rv *Resolver) Page(v *View, uri string) *Task[*content.Node] {
	return startNode(rv, v, content.PageByURIQuery, map[string]any{"uri": uri}, rv.tuning.Page,
		func() *content.PageResult { return &content.PageResult{} })
}

// Generic fetches the page addressed by an arbitrary request path.
func (rv *Resolver) Generic(v *View, path string) *Task[*content.Node] {
	return rv.Page(v, GenericIdentifier(path))
}

func (rv *Resolver) Post(v *View, slug string) *Task[*content.Node] {
	if slug == "" {
		return settledTask(v, rv.emptySlug(v, content.PostBySlugQuery))
	}
	return startNode(rv, v, content.PostBySlugQuery, map[string]any{"slug": slug}, rv.tuning.Detail,
		func() *content.PostResult { return &content.PostResult{} })
}

func (rv *Resolver) PortfolioItem(v *View, slug string) *Task[*content.Node] {
	if slug == "" {
		return settledTask(v, rv.emptySlug(v, content.PortfolioItemBySlugQuery))
	}
	return startNode(rv, v, content.PortfolioItemBySlugQuery, map[string]any{"slug": slug}, rv.tuning.Detail,
		func() *content.PortfolioItemResult { return &content.PortfolioItemResult{} })
}

func (rv *Resolver) Posts(v *View, p CollectionParams) *Task[*content.Connection] {
	query := content.PostsQuery
	if p.Category != "" {
		query = content.PostsByCategoryQuery
	}
	return startConnection(rv, v, query, p.variables(DefaultPostsPerPage),
		func() *content.PostsResult { return &content.PostsResult{} })
}

func (rv *Resolver) PortfolioItems(v *View, p CollectionParams) *Task[*content.Connection] {
	query := content.PortfolioItemsQuery
	if p.Category != "" {
		query = content.PortfolioItemsByCategoryQuery
	}
	return startConnection(rv, v, query, p.variables(DefaultPortfolioItemsPerPage),
		func() *content.PortfolioItemsResult { return &content.PortfolioItemsResult{} })
}

// Menu fetches the menu at location, PRIMARY when empty.
func (rv *Resolver) Menu(v *View, location string) *Task[[]content.MenuItem] {
	if location == "" {
		location = DefaultMenuLocation
	}
	return start(rv, v, content.MenuItemsQuery, map[string]any{"location": location}, rv.tuning.Menu,
		func() *content.MenuItemsResult { return &content.MenuItemsResult{} },
		func(r *content.MenuItemsResult) ([]content.MenuItem, bool) { return r.Items(), true })
}

func (rv *Resolver) SiteSettings(v *View) *Task[*content.GeneralSettings] {
	return start(rv, v, content.SiteSettingsQuery, nil, rv.tuning.Settings,
		func() *content.SiteSettingsResult { return &content.SiteSettingsResult{} },
		func(r *content.SiteSettingsResult) (*content.GeneralSettings, bool) {
			return r.GeneralSettings, r.GeneralSettings != nil
		})
}

// GenericIdentifier maps a request path to the page URI the backend
// expects: the path without its leading slash, or "/" for the root.
func GenericIdentifier(path string) string {
	id := strings.TrimPrefix(path, "/")
	if id == "" {
		return "/"
	}
	return id
}

func (p CollectionParams) variables(defaultFirst int) map[string]any {
	first := p.First
	if first <= 0 {
		first = defaultFirst
	}
	vars := map[string]any{"first": first}
	if p.After != "" {
		vars["after"] = p.After
	}
	if p.Category != "" {
		vars["category"] = p.Category
	}
	return vars
}

func (rv *Resolver) emptySlug(v *View, query content.Query) Outcome[*content.Node] {
	if v.static {
		return Outcome[*content.Node]{State: StaticFallback}
	}
	outcomeCountMetric.WithLabelValues(query.Name, Absent.String()).Inc()
	return Outcome[*content.Node]{State: Absent}
}

func startNode[R content.NodeResult](rv *Resolver, v *View, query content.Query, vars map[string]any, opts QueryOptions, newResult func() R) *Task[*content.Node] {
	return start(rv, v, query, vars, opts, newResult, func(r R) (*content.Node, bool) {
		n := r.Node()
		return n, n != nil
	})
}

func startConnection[R content.ConnectionResult](rv *Resolver, v *View, query content.Query, vars map[string]any, newResult func() R) *Task[*content.Connection] {
	return start(rv, v, query, vars, rv.tuning.Collection, newResult, func(r R) (*content.Connection, bool) {
		return r.Connection(), true
	})
}

// start begins a query on v. extract reports false when the result says the
// requested resource does not exist.
func start[R content.Validator, T any](rv *Resolver, v *View, query content.Query, vars map[string]any, opts QueryOptions, newResult func() R, extract func(R) (T, bool)) *Task[T] {
	if v.static {
		return settledTask(v, Outcome[T]{State: StaticFallback})
	}

	key := memoKey(query, vars)
	if entry, ok := rv.memo.Get(key); ok && time.Now().Before(entry.expires) {
		if o, ok := entry.outcome.(Outcome[T]); ok {
			memoHitCountMetric.WithLabelValues(query.Name).Inc()
			return settledTask(v, o)
		}
	}

	task := newTask[T](v)
	fetchCtx := context.WithoutCancel(v.ctx)

	rv.inflight.Add(1)
	go func() {
		defer rv.inflight.Done()

		res, _, _ := rv.flight.Do(key, func() (any, error) {
			o := fetch(fetchCtx, rv, query, vars, opts, newResult, extract)
			if opts.StaleTime > 0 && (o.State == Success || o.State == Absent) {
				rv.memo.Add(key, memoEntry{outcome: o, expires: time.Now().Add(opts.StaleTime)})
			}
			return o, nil
		})
		o := res.(Outcome[T])

		if !v.apply(func() { task.settle(o) }) {
			staleDiscardedCountMetric.WithLabelValues(query.Name).Inc()
			rv.logger.Debug().
				Str("query", query.Name).
				Str("state", o.State.String()).
				Msg("discarding content response for a view that was left")
		}
	}()

	return task
}

func fetch[R content.Validator, T any](ctx context.Context, rv *Resolver, query content.Query, vars map[string]any, opts QueryOptions, newResult func() R, extract func(R) (T, bool)) Outcome[T] {
	ctx, cancel := context.WithTimeout(ctx, rv.fetchTimeout)
	defer cancel()

	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Millisecond
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.NewConstant(delay))

	var (
		result   R
		attempts int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		result = newResult()
		err := rv.fetcher.Fetch(ctx, query, vars, result)
		if content.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	var o Outcome[T]
	switch {
	case err == nil:
		value, present := extract(result)
		if present {
			o = Outcome[T]{State: Success, Value: value}
		} else {
			o = Outcome[T]{State: Absent}
		}
	case errors.Is(err, content.ErrEndpointUnconfigured):
		o = Outcome[T]{State: StaticFallback, Err: err}
	default:
		o = Outcome[T]{State: Error, Err: err}
	}

	outcomeCountMetric.WithLabelValues(query.Name, o.State.String()).Inc()
	if o.State == Error {
		rv.logger.Warn().Err(err).
			Str("query", query.Name).
			Int("attempts", attempts).
			Msg("content query failed")
	} else {
		rv.logger.Debug().
			Str("query", query.Name).
			Str("state", o.State.String()).
			Int("attempts", attempts).
			Msg("content query settled")
	}

	return o
}

// memoKey identifies a query and its variables. json.Marshal sorts map keys,
// which makes the encoding canonical.
func memoKey(query content.Query, vars map[string]any) string {
	b, err := json.Marshal(vars)
	if err != nil {
		return query.Name
	}
	return query.Name + ":" + string(b)
}

func (t Tuning) longestStaleTime() time.Duration {
	longest := time.Minute
	for _, o := range []QueryOptions{t.Page, t.Collection, t.Detail, t.Menu, t.Settings} {
		if o.StaleTime > longest {
			longest = o.StaleTime
		}
	}
	return longest
}
