package echo

import "slices"

// Snapshot is the persisted registry: generated and mutated definitions plus
// the active set. Core echoes are rebuilt from code on restore.
type Snapshot struct {
	Catalog []Echo   `json:"catalog"`
	Active  []Active `json:"active"`
}

func isCore(id string) bool {
	return slices.ContainsFunc(coreEchoes(), func(e Echo) bool { return e.ID == id })
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := Snapshot{Catalog: []Echo{}, Active: []Active{}}
	for _, id := range r.order {
		if !isCore(id) {
			snap.Catalog = append(snap.Catalog, r.catalog[id].clone())
		}
	}
	for _, a := range r.active {
		c := *a
		c.Echo = a.Echo.clone()
		snap.Active = append(snap.Active, c)
	}
	return snap
}

// Restore replaces the registry contents with snap. Active entries whose
// definition is unknown are dropped.
func (r *Registry) Restore(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
	for _, e := range snap.Catalog {
		if e.ID == "" || isCore(e.ID) {
			continue
		}
		r.registerLocked(e.clone())
	}
	for _, a := range snap.Active {
		if _, ok := r.catalog[a.ID]; !ok {
			r.log.Printf("echo: dropping unknown active echo %s", a.ID)
			continue
		}
		c := a
		c.Echo = a.Echo.clone()
		r.active = append(r.active, &c)
	}
}
