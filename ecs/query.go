package ecs

import "github.com/milk9111/physkit/ecs/component"

// Query returns the entities carrying every listed component, iterating
// the smallest store.
func (w *World) Query(ids ...component.ID) []Entity {
	if len(ids) == 0 {
		return nil
	}
	smallest := -1
	for i, id := range ids {
		s, ok := w.stores[id]
		if !ok || s.Len() == 0 {
			return nil
		}
		if smallest < 0 || s.Len() < w.stores[ids[smallest]].Len() {
			smallest = i
		}
	}

	base := w.stores[ids[smallest]]
	out := make([]Entity, 0, base.Len())
outer:
	for _, e := range base.Entities() {
		for i, id := range ids {
			if i == smallest {
				continue
			}
			if !w.stores[id].Has(e) {
				continue outer
			}
		}
		out = append(out, e)
	}
	return out
}

// QueryWithout returns entities carrying every `with` component and none
// of the `without` ones.
func (w *World) QueryWithout(with []component.ID, without []component.ID) []Entity {
	candidates := w.Query(with...)
	if len(without) == 0 {
		return candidates
	}
	out := candidates[:0]
outer:
	for _, e := range candidates {
		for _, id := range without {
			if s, ok := w.stores[id]; ok && s.Has(e) {
				continue outer
			}
		}
		out = append(out, e)
	}
	return out
}
