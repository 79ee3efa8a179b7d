package feed

import "errors"

// Counters are the totals displayed on a card. Server totals always
// overwrite local values; Bump is a local increment shown until the next
// fetch settles.
type Counters struct {
	Comments  int `json:"comments"`
	Reactions int `json:"reactions"`
	Shares    int `json:"shares"`
}

func (c *Counters) BumpComments() { c.Comments++ }
func (c *Counters) BumpShares()   { c.Shares++ }

// UnbumpComments reverts a BumpComments whose mutation failed.
func (c *Counters) UnbumpComments() {
	if c.Comments > 0 {
		c.Comments--
	}
}

func (c *Counters) ReconcileComments(total int)  { c.Comments = nonNegative(total) }
func (c *Counters) ReconcileReactions(total int) { c.Reactions = nonNegative(total) }
func (c *Counters) ReconcileShares(total int)    { c.Shares = nonNegative(total) }

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// QueryState is the view state of one query on a card.
type QueryState string

const (
	StateLoading QueryState = "loading"
	StateError   QueryState = "error"
	StateReady   QueryState = "ready"
)

// A Query tracks the state of one query and, when it failed, why.
type Query struct {
	State QueryState `json:"state"`
	Error string     `json:"error,omitempty"`
	// NotFound is set when the gateway has no record for the id.
	NotFound bool `json:"not_found,omitempty"`
}

func (q *Query) loading() { *q = Query{State: StateLoading} }
func (q *Query) ready()   { *q = Query{State: StateReady} }

func (q *Query) failed(err error) {
	*q = Query{State: StateError, Error: err.Error(), NotFound: errors.Is(err, ErrNotFound)}
}
