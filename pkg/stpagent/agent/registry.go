package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

type mount struct {
	root    OID
	handler Handler
}

// Registry maps non-overlapping OID subtrees to handlers and resolves exact
// and next-in-order lookups across them.
type Registry struct {
	mounts []mount // sorted by root
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Mount attaches h at root. Subtrees may not nest.
func (r *Registry) Mount(root OID, h Handler) error {
	for _, m := range r.mounts {
		if root.HasPrefix(m.root) || m.root.HasPrefix(root) {
			return fmt.Errorf("agent: mount %s overlaps %s", root, m.root)
		}
	}
	pos := sort.Search(len(r.mounts), func(i int) bool {
		return root.Compare(r.mounts[i].root) <= 0
	})
	r.mounts = append(r.mounts, mount{})
	copy(r.mounts[pos+1:], r.mounts[pos:])
	r.mounts[pos] = mount{root: root.Append(), handler: h}
	return nil
}

// Roots lists mount points in order.
func (r *Registry) Roots() []OID {
	out := make([]OID, len(r.mounts))
	for i, m := range r.mounts {
		out[i] = m.root
	}
	return out
}

// Get resolves an exact instance.
func (r *Registry) Get(ctx context.Context, oid OID) (Value, error) {
	for _, m := range r.mounts {
		if oid.HasPrefix(m.root) {
			return m.handler.Get(ctx, oid[len(m.root):])
		}
	}
	return Value{}, ErrNoSuchObject
}

// Next returns the first instance strictly after oid, crossing into later
// subtrees as each one is exhausted.
func (r *Registry) Next(ctx context.Context, oid OID) (OID, Value, error) {
	for _, m := range r.mounts {
		var suffix []int
		switch {
		case oid.HasPrefix(m.root):
			suffix = oid[len(m.root):]
		case oid.Compare(m.root) < 0:
			suffix = nil
		default:
			continue
		}

		next, v, err := m.handler.Next(ctx, suffix)
		if errors.Is(err, ErrEndOfView) {
			continue
		}
		if err != nil {
			return nil, Value{}, err
		}
		return m.root.Append(next...), v, nil
	}
	return nil, Value{}, ErrEndOfView
}
