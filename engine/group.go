// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"slices"
	"sync"

	"github.com/ik5/gamesnd/sample"
)

// GlobalGroupName is the name of the group every added sample joins.
const GlobalGroupName = "global"

var errGroupNotFound = errors.New("engine: group not found")

// Group is a named set of samples. A sample appears at most once per group.
type Group struct {
	name string

	mu      sync.Mutex
	samples []sample.Sample
}

func newGroup(name string) *Group {
	return &Group{name: name}
}

func (g *Group) Name() string { return g.name }

// IsGlobal reports whether g is the engine's global group.
func (g *Group) IsGlobal() bool { return g.name == GlobalGroupName }

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.samples)
}

// Samples returns a snapshot of the group members.
func (g *Group) Samples() []sample.Sample {
	g.mu.Lock()
	defer g.mu.Unlock()

	return slices.Clone(g.samples)
}

func (g *Group) Contains(s sample.Sample) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return slices.Contains(g.samples, s)
}

// Stop stops every member of the group. It returns the first error.
func (g *Group) Stop() error {
	var first error
	for _, s := range g.Samples() {
		if err := s.Stop(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

func (g *Group) add(s sample.Sample) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if slices.Contains(g.samples, s) {
		return false
	}
	g.samples = append(g.samples, s)

	return true
}

func (g *Group) remove(s sample.Sample) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := slices.Index(g.samples, s)
	if i < 0 {
		return false
	}
	g.samples = slices.Delete(g.samples, i, i+1)

	return true
}

// FindGroup returns the group called name, creating and registering it when
// it does not exist yet. Names are matched exactly.
func (e *Engine) FindGroup(name string) *Group {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	if g := e.lookupGroupLocked(name); g != nil {
		return g
	}

	g := newGroup(name)
	e.groups = append(e.groups, g)
	e.metrics.SetGroups(len(e.groups))

	return g
}

// LookupGroup returns the group called name without creating it.
func (e *Engine) LookupGroup(name string) (*Group, bool) {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	g := e.lookupGroupLocked(name)

	return g, g != nil
}

func (e *Engine) lookupGroupLocked(name string) *Group {
	for _, g := range e.groups {
		if g.name == name {
			return g
		}
	}

	return nil
}

// Groups returns a snapshot of every registered group, global first.
func (e *Engine) Groups() []*Group {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	return slices.Clone(e.groups)
}

// RemoveSampleGroup deletes the group called name. Its samples stay in the
// engine. The global group is never removed.
func (e *Engine) RemoveSampleGroup(name string) bool {
	err := e.removeGroup(name)
	if err != nil {
		e.logger.Debug("group not removed", "group", name, "error", err)
		return false
	}

	return true
}

func (e *Engine) removeGroup(name string) error {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	i := slices.IndexFunc(e.groups, func(g *Group) bool { return g.name == name })
	if i < 0 {
		return errGroupNotFound
	}
	if e.groups[i].IsGlobal() {
		return ErrGlobalGroup
	}

	e.groups = slices.Delete(e.groups, i, i+1)
	e.metrics.SetGroups(len(e.groups))

	return nil
}

// AddSampleToGroup adds s to the group called name, creating the group when
// needed. Only samples owned by the engine can join a group; a sample that
// is already a member is not added twice.
func (e *Engine) AddSampleToGroup(name string, s sample.Sample) bool {
	if s == nil {
		return false
	}

	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	if !slices.Contains(e.samples, s) {
		return false
	}

	return e.FindGroup(name).add(s)
}

// RemoveSampleFromGroup removes s from the group called name. It reports
// false when the group does not exist or s was not a member.
func (e *Engine) RemoveSampleFromGroup(name string, s sample.Sample) bool {
	g, ok := e.LookupGroup(name)
	if !ok {
		return false
	}

	return g.remove(s)
}

// RemoveEmptyGroups deletes every empty group except the global one and
// returns how many were deleted.
func (e *Engine) RemoveEmptyGroups() int {
	e.samplesMu.Lock()
	defer e.samplesMu.Unlock()

	return e.removeEmptyGroupsLocked()
}

// removeEmptyGroupsLocked holds samplesMu so that AddSampleToGroup cannot
// lose a group between creating and filling it.
func (e *Engine) removeEmptyGroupsLocked() int {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	before := len(e.groups)
	e.groups = slices.DeleteFunc(e.groups, func(g *Group) bool {
		return !g.IsGlobal() && g.Len() == 0
	})

	removed := before - len(e.groups)
	if removed > 0 {
		e.metrics.SetGroups(len(e.groups))
	}

	return removed
}

// detachFromGroups removes s from every group. The caller holds samplesMu.
func (e *Engine) detachFromGroups(s sample.Sample) {
	e.groupsMu.Lock()
	defer e.groupsMu.Unlock()

	for _, g := range e.groups {
		g.remove(s)
	}
}
