package supabase

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// ChangeHandler receives rows that appeared since the previous poll.
type ChangeHandler func(record map[string]interface{})

// ChangePoller re-fetches a table at a fixed interval and reports rows it has
// not seen before. It is the explicit polling replacement for a realtime push
// channel: messages and notifications subscribe through it.
type ChangePoller struct {
	client   *Client
	table    string
	interval time.Duration
	filters  []filterSpec
	handler  ChangeHandler

	mu      sync.Mutex
	seen    map[string]string // row id -> created_at
	since   string            // newest created_at observed so far
	primed  bool
	stopCh  chan struct{}
	running bool
}

type filterSpec struct {
	column string
	op     FilterOperator
	value  interface{}
}

// NewChangePoller creates a poller for one table.
func (c *Client) NewChangePoller(table string, interval time.Duration) *ChangePoller {
	return &ChangePoller{
		client:   c,
		table:    table,
		interval: interval,
		seen:     make(map[string]string),
	}
}

// Where restricts the polled rows.
func (p *ChangePoller) Where(column string, op FilterOperator, value interface{}) *ChangePoller {
	p.filters = append(p.filters, filterSpec{column: column, op: op, value: value})
	return p
}

// OnChange sets the handler invoked for each new row.
func (p *ChangePoller) OnChange(handler ChangeHandler) *ChangePoller {
	p.handler = handler
	return p
}

// Start begins polling until Stop is called or ctx is cancelled. The first
// poll primes the seen set without firing the handler, so only rows created
// after Start are reported. A stopped poller can Start again.
func (p *ChangePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return NewError(KindValidation, "poller already running", 0)
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stopCh := p.stopCh
	p.mu.Unlock()

	go p.poll(ctx, stopCh)
	return nil
}

// Stop stops the poller.
func (p *ChangePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		close(p.stopCh)
		p.running = false
	}
}

func (p *ChangePoller) poll(ctx context.Context, stopCh chan struct{}) {
	p.checkForChanges(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			p.checkForChanges(ctx)
		}
	}
}

func (p *ChangePoller) checkForChanges(ctx context.Context) {
	p.mu.Lock()
	since := p.since
	p.mu.Unlock()

	query := p.client.From(p.table).Select("*").Order("created_at", OrderAsc)
	// Once a timestamp is known, only rows at or past it are fetched; the
	// seen set de-duplicates the boundary rows.
	if since != "" {
		query = query.Gte("created_at", since)
	}
	for _, f := range p.filters {
		query = query.Filter(f.column, f.op, f.value)
	}

	data, err := query.Execute(ctx)
	if err != nil {
		return // polling silently retries on the next tick
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return
	}

	p.mu.Lock()
	primed := p.primed
	p.primed = true
	fresh := make([]map[string]interface{}, 0)
	for _, record := range records {
		id, ok := record["id"].(string)
		if !ok {
			continue
		}
		if _, dup := p.seen[id]; dup {
			continue
		}
		created, _ := record["created_at"].(string)
		p.seen[id] = created
		if created > p.since {
			p.since = created
		}
		fresh = append(fresh, record)
	}
	// Rows strictly before the boundary can never be fetched again, so
	// their entries are dropped to keep the set bounded.
	if p.since != "" {
		for id, created := range p.seen {
			if created < p.since {
				delete(p.seen, id)
			}
		}
	}
	handler := p.handler
	p.mu.Unlock()

	if !primed || handler == nil {
		return
	}
	for _, record := range fresh {
		handler(record)
	}
}
