// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

// resourceTable maps resource IDs to the resources registered this frame.
// Registration order is kept so Build resolves leftovers deterministically.
// Resource structs are recycled between frames.
type resourceTable struct {
	byID  map[ResourceID]*Resource
	order []*Resource
	spare []*Resource
}

func newResourceTable() resourceTable {
	return resourceTable{byID: make(map[ResourceID]*Resource)}
}

func (t *resourceTable) alloc() *Resource {
	if n := len(t.spare); n > 0 {
		r := t.spare[n-1]
		t.spare = t.spare[:n-1]
		return r
	}
	return new(Resource)
}

func (t *resourceTable) insert(r *Resource) {
	t.byID[r.id] = r
	t.order = append(t.order, r)
}

// importResource binds a non-owning resource. Importing the same ID again
// with the same handle and a compatible descriptor returns the existing
// resource.
func (t *resourceTable) importResource(id ResourceID, kind Kind, h Handle, tex TextureDesc, buf BufferDesc, state Access) (*Resource, error) {
	if kind == KindTexture {
		tex = tex.normalize()
	}
	if existing, ok := t.byID[id]; ok {
		if !existing.imported || existing.handle != h || !existing.compatible(kind, tex, buf) {
			return nil, ErrIncompatibleResource
		}
		return existing, nil
	}
	r := t.alloc()
	*r = Resource{
		id:       id,
		kind:     kind,
		tex:      tex,
		buf:      buf,
		handle:   h,
		imported: true,
		state:    state,
		resolved: true,
		lastUse:  -1,
		held:     -1,
		creator:  -1,
	}
	t.insert(r)
	return r, nil
}

// add registers a graph-owned resource with deferred allocation. A
// compatible duplicate returns the existing resource.
func (t *resourceTable) add(id ResourceID, kind Kind, tex TextureDesc, buf BufferDesc) (*Resource, error) {
	if kind == KindTexture {
		tex = tex.normalize()
	}
	if existing, ok := t.byID[id]; ok {
		if existing.imported || !existing.compatible(kind, tex, buf) {
			return nil, ErrIncompatibleResource
		}
		return existing, nil
	}
	r := t.alloc()
	*r = Resource{
		id:      id,
		kind:    kind,
		tex:     tex,
		buf:     buf,
		state:   AccessUndefined,
		lastUse: -1,
		held:    -1,
		creator: -1,
	}
	t.insert(r)
	return r, nil
}

// get looks up id. An absent ID yields (nil, nil) unless mustExist is set.
func (t *resourceTable) get(id ResourceID, kind Kind, mustExist bool) (*Resource, error) {
	r, ok := t.byID[id]
	if !ok {
		if mustExist {
			return nil, ErrResourceNotFound
		}
		return nil, nil
	}
	if r.kind != kind {
		return nil, ErrIncompatibleResource
	}
	return r, nil
}

// lookup returns the resource for id regardless of kind.
func (t *resourceTable) lookup(id ResourceID) (*Resource, bool) {
	r, ok := t.byID[id]
	return r, ok
}

func (t *resourceTable) len() int { return len(t.order) }

// reset forgets every registration and recycles the resource structs.
func (t *resourceTable) reset() {
	for i, r := range t.order {
		*r = Resource{}
		t.spare = append(t.spare, r)
		t.order[i] = nil
	}
	t.order = t.order[:0]
	clear(t.byID)
}
