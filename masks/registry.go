// seehuhn.de/go/darkroom - raw development and mask rendering
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package masks

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"seehuhn.de/go/darkroom"
)

var formCounter atomic.Int64

// nextID returns a new process-wide unique form id.
func nextID() int {
	return int(formCounter.Add(1))
}

// Registry holds all forms known to an editing session and resolves the
// ids stored in group entries.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	forms []*Form
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Create registers a new form for the given shape. The form gets a fresh
// id and opacity 1.
func (r *Registry) Create(name string, s Shape) *Form {
	f := &Form{
		ID:      nextID(),
		Name:    name,
		Opacity: 1,
		Shape:   s,
	}
	r.Add(f)
	return f
}

// Add registers an existing form. Forms with an id already present in
// the registry replace the old entry.
func (r *Registry) Add(f *Form) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, g := range r.forms {
		if g.ID == f.ID {
			r.forms[i] = f
			return
		}
	}
	r.forms = append(r.forms, f)
}

// Get returns the form with the given id, or nil.
func (r *Registry) Get(id int) *Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(id)
}

func (r *Registry) get(id int) *Form {
	for _, f := range r.forms {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Forms returns a snapshot of all registered forms in insertion order.
func (r *Registry) Forms() []*Form {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.forms)
}

// Len returns the number of registered forms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forms)
}

// contains reports whether the group graph below grp reaches the form
// with the given id. grp itself counts.
func (r *Registry) contains(grp *Form, id int, seen map[int]bool) bool {
	g, ok := grp.Shape.(*Group)
	if !ok {
		return false
	}
	if grp.ID == id {
		return true
	}
	if seen[grp.ID] {
		return false
	}
	seen[grp.ID] = true
	for _, e := range g.Children {
		if child := r.get(e.FormID); child != nil && r.contains(child, id, seen) {
			return true
		}
	}
	return false
}

// Append adds f at the end of the group grp. The new entry is enabled and
// visible; all entries but the first combine by union. Append fails with
// [darkroom.ErrCyclicReference] if grp would end up containing itself.
func (r *Registry) Append(grp, f *Form) (*GroupEntry, error) {
	g, ok := grp.Shape.(*Group)
	if !ok {
		return nil, &darkroom.MalformedShapeError{ID: grp.ID, Reason: "not a group"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contains(f, grp.ID, map[int]bool{}) {
		darkroom.Logger().Warn("masks: group can not contain itself",
			"group", grp.ID, "form", f.ID)
		return nil, fmt.Errorf("add form %d to group %d: %w", f.ID, grp.ID, darkroom.ErrCyclicReference)
	}

	e := GroupEntry{
		FormID:   f.ID,
		ParentID: grp.ID,
		State:    StateUse | StateShow,
		Opacity:  f.Opacity,
	}
	if len(g.Children) > 0 {
		e.State |= StateUnion
	}
	g.Children = append(g.Children, e)
	return &g.Children[len(g.Children)-1], nil
}

// Remove deletes the entry for form id from the group. It reports whether
// an entry was found.
func (r *Registry) Remove(grp *Form, id int) bool {
	g, ok := grp.Shape.(*Group)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range g.Children {
		if e.FormID == id {
			g.Children = slices.Delete(g.Children, i, i+1)
			return true
		}
	}
	return false
}

// Move shifts the entry for form id one position towards the end of the
// group if up is true, or towards the start otherwise.
func (r *Registry) Move(grp *Form, id int, up bool) {
	g, ok := grp.Shape.(*Group)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range g.Children {
		if e.FormID != id {
			continue
		}
		j := i - 1
		if up {
			j = i + 1
		}
		if j < 0 || j >= len(g.Children) {
			return
		}
		g.Children[i], g.Children[j] = g.Children[j], g.Children[i]
		return
	}
}

// Ungroup flattens grp: entries referring to sub-groups are replaced,
// recursively, by the entries of those groups. Entries whose form is not
// registered are dropped.
func (r *Registry) Ungroup(grp *Form) []GroupEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []GroupEntry
	r.ungroup(grp, &res, map[int]bool{})
	return res
}

func (r *Registry) ungroup(grp *Form, res *[]GroupEntry, seen map[int]bool) {
	g, ok := grp.Shape.(*Group)
	if !ok || seen[grp.ID] {
		return
	}
	seen[grp.ID] = true
	defer delete(seen, grp.ID)

	for _, e := range g.Children {
		f := r.get(e.FormID)
		if f == nil {
			continue
		}
		if f.Kind() == KindGroup {
			r.ungroup(f, res, seen)
			continue
		}
		*res = append(*res, e)
	}
}

// CollectGarbage removes every form which is not reachable from one of
// the given root forms, following group entries. It returns the number
// of forms removed.
func (r *Registry) CollectGarbage(roots ...int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	used := make(map[int]bool)
	var mark func(id int)
	mark = func(id int) {
		if used[id] {
			return
		}
		used[id] = true
		f := r.get(id)
		if f == nil {
			return
		}
		if g, ok := f.Shape.(*Group); ok {
			for _, e := range g.Children {
				mark(e.FormID)
			}
		}
	}
	for _, id := range roots {
		mark(id)
	}

	n := len(r.forms)
	r.forms = slices.DeleteFunc(r.forms, func(f *Form) bool { return !used[f.ID] })
	removed := n - len(r.forms)
	if removed > 0 {
		darkroom.Logger().Debug("masks: removed unused forms", "count", removed)
	}
	return removed
}
