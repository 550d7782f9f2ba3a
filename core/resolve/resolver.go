// Package resolve finds the member of a host type a script call refers to.
//
// Without an explicit signature the resolver scans the owner's members: it
// drops refused members and arity mismatches, probes argument conversion
// against every remaining candidate and keeps the first one that converts.
// With an explicit signature it performs an exact lookup instead. Both
// outcomes, including misses, are cached per owner type.
package resolve

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/anoideaopen/reflectcall/core/cache"
	"github.com/anoideaopen/reflectcall/core/convert"
	"github.com/anoideaopen/reflectcall/core/host"
	"github.com/anoideaopen/reflectcall/core/value"
	"github.com/sirupsen/logrus"
)

// Error types.
var (
	ErrNoMatchingMember = errors.New("no matching member")
	ErrAccessDenied     = host.ErrAccessDenied
)

// Order selects how candidates are ordered before probing.
type Order int

const (
	// OrderDeclared keeps the order the host declares members in.
	OrderDeclared Order = iota
	// OrderSignature sorts candidates by their textual signature.
	OrderSignature
)

// ParseOrder parses "declared" or "signature".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "declared":
		return OrderDeclared, nil
	case "signature":
		return OrderSignature, nil
	default:
		return OrderDeclared, fmt.Errorf("unknown candidate order '%s'", s)
	}
}

// Cache is the resolution cache: owner type -> key -> resolution.
type Cache = cache.Cache[reflect.Type, Key, Resolution]

type cacheScope struct {
	host  host.Host
	order Order
}

// defaultCaches holds one process-wide cache per host and candidate order:
// a resolution is only valid for the member set and access policy it was
// computed against.
var defaultCaches sync.Map // cacheScope -> *Cache

// NewCache creates an empty resolution cache.
func NewCache() *Cache {
	return cache.New[reflect.Type, Key, Resolution]()
}

// DefaultCache returns the process-wide resolution cache of h for the given
// candidate order. A host whose dynamic type is not comparable gets a fresh
// cache on every call.
func DefaultCache(h host.Host, order Order) *Cache {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return NewCache()
	}
	c, _ := defaultCaches.LoadOrStore(cacheScope{host: h, order: order}, NewCache())
	return c.(*Cache) //nolint:forcetypeassert
}

// Stats counts the expensive lookups a resolver performed, together with the
// size of the cache it resolves through.
type Stats struct {
	Scans            int64
	SignatureLookups int64
	// Owners is the number of owner types with a cache bucket.
	Owners int
	// Entries is the number of stored resolutions, tombstones included.
	Entries int
}

// Resolver resolves call targets against a host.
type Resolver struct {
	host  host.Host
	conv  *convert.Converter
	cache *Cache
	order Order
	log   logrus.FieldLogger

	scans            atomic.Int64
	signatureLookups atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache replaces the process-wide cache of the host.
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithOrder sets the candidate order policy.
func WithOrder(o Order) Option {
	return func(r *Resolver) { r.order = o }
}

// New creates a resolver.
func New(h host.Host, conv *convert.Converter, log logrus.FieldLogger, opts ...Option) *Resolver {
	r := &Resolver{
		host: h,
		conv: conv,
		log:  log,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = DefaultCache(h, r.order)
	}
	return r
}

// Stats returns the lookup counters and the cache size.
func (r *Resolver) Stats() Stats {
	st := Stats{
		Scans:            r.scans.Load(),
		SignatureLookups: r.signatureLookups.Load(),
	}
	for _, owner := range r.cache.Owners() {
		st.Owners++
		st.Entries += r.cache.Len(owner)
	}
	return st
}

// Cached returns the resolution stored for key on owner without resolving it.
func (r *Resolver) Cached(owner reflect.Type, key Key) (Resolution, bool) {
	return r.cache.Get(owner, key)
}

// Resolve finds the member matching target and args on owner by scanning.
// static selects between members called on the type and on an instance.
func (r *Resolver) Resolve(owner reflect.Type, static bool, target Target, args []value.Value) (Found, error) {
	key := KeyOf(target, static, args)
	return r.resolve(owner, key, func() (Found, bool, error) {
		r.scans.Add(1)
		r.log.WithField("key", key.String()).Debug("running lookup")
		return r.scan(owner, static, target, args)
	})
}

// ResolveSignature finds the member of owner whose parameters are exactly params.
func (r *Resolver) ResolveSignature(owner reflect.Type, static bool, target Target, params []reflect.Type) (Found, error) {
	key := SignatureKeyOf(target, static, params)
	return r.resolve(owner, key, func() (Found, bool, error) {
		r.signatureLookups.Add(1)
		r.log.WithField("key", key.String()).Debug("running signature lookup")

		m, ok := r.host.Lookup(owner, target.Kind, target.Name, static, params)
		if !ok || m.Refused {
			return Found{}, false, nil
		}
		found, err := r.open(m)
		if err != nil {
			return Found{}, false, err
		}
		return found, true, nil
	})
}

// resolve runs lookup through the cache. A miss is stored as a tombstone;
// an access failure is returned without being stored.
func (r *Resolver) resolve(owner reflect.Type, key Key, lookup func() (Found, bool, error)) (Found, error) {
	var lookupErr error
	res := r.cache.ResolveOrSkip(owner, key, func() (Resolution, bool) {
		found, ok, err := lookup()
		switch {
		case err != nil:
			lookupErr = err
			return nil, false
		case !ok:
			return NotFound{}, true
		default:
			return found, true
		}
	})

	if lookupErr != nil {
		return Found{}, lookupErr
	}

	switch res := res.(type) {
	case Found:
		return res, nil
	default:
		return Found{}, fmt.Errorf("%w: %s on %s", ErrNoMatchingMember, key, owner)
	}
}

func (r *Resolver) scan(owner reflect.Type, static bool, target Target, args []value.Value) (Found, bool, error) {
	candidates := r.host.Members(owner, target.Kind, target.Name)
	if r.order == OrderSignature {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Signature() < candidates[j].Signature()
		})
	}

	for _, m := range candidates {
		if m.Refused || m.Static != static {
			continue
		}
		if m.Arity() != len(args) {
			continue
		}
		if _, err := r.conv.ConvertAll(m.Params, args, convert.Probe); err != nil {
			continue
		}

		found, err := r.open(m)
		if err != nil {
			return Found{}, false, err
		}
		return found, true, nil
	}

	return Found{}, false, nil
}

func (r *Resolver) open(m host.Member) (Found, error) {
	if err := r.host.MakeAccessible(m); err != nil {
		return Found{}, err
	}
	fn, err := r.host.Invocable(m)
	if err != nil {
		return Found{}, fmt.Errorf("%w: %s: %v", ErrAccessDenied, m, err)
	}
	return Found{
		Member: m,
		Params: m.Params,
		Fn:     fn,
	}, nil
}
