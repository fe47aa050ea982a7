package domain

import "github.com/google/uuid"

// InstanceSet is an ordered set of AppInstance values keyed by InstanceID.
// Insertion order is preserved so that plans are reproducible.
type InstanceSet struct {
	order []uuid.UUID
	byID  map[uuid.UUID]AppInstance
}

// NewInstanceSet returns an empty InstanceSet.
func NewInstanceSet() InstanceSet {
	return InstanceSet{byID: make(map[uuid.UUID]AppInstance)}
}

// Add inserts or replaces instance, keeping the first-seen position in Order
// stable across replacement.
func (s *InstanceSet) Add(instance AppInstance) {
	if s.byID == nil {
		s.byID = make(map[uuid.UUID]AppInstance)
	}
	if _, exists := s.byID[instance.InstanceID]; !exists {
		s.order = append(s.order, instance.InstanceID)
	}
	s.byID[instance.InstanceID] = instance
}

// Remove deletes the instance with the given id, if present.
func (s *InstanceSet) Remove(id uuid.UUID) {
	if s.byID == nil {
		return
	}
	if _, exists := s.byID[id]; !exists {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether id is a member.
func (s InstanceSet) Contains(id uuid.UUID) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns the member with id, if present.
func (s InstanceSet) Get(id uuid.UUID) (AppInstance, bool) {
	v, ok := s.byID[id]
	return v, ok
}

// List returns the members in insertion order.
func (s InstanceSet) List() []AppInstance {
	out := make([]AppInstance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of members.
func (s InstanceSet) Len() int {
	return len(s.order)
}

// Transaction is the per-request scratch state the planner builds up while
// walking the dependency graph. An AppInstance appears in at most one of the
// three sets - see SPEC_FULL.md §3 invariant (a).
type Transaction struct {
	Creating  InstanceSet
	Modifying InstanceSet
	Deleting  InstanceSet
}

// NewTransaction returns an empty Transaction.
func NewTransaction() *Transaction {
	return &Transaction{
		Creating:  NewInstanceSet(),
		Modifying: NewInstanceSet(),
		Deleting:  NewInstanceSet(),
	}
}

// MoveToCreating places instance in Creating, removing it from Modifying and
// Deleting first so the at-most-one-set invariant holds.
func (t *Transaction) MoveToCreating(instance AppInstance) {
	t.Modifying.Remove(instance.InstanceID)
	t.Deleting.Remove(instance.InstanceID)
	t.Creating.Add(instance)
}

// MoveToModifying places instance in Modifying, removing it from Deleting
// first. An instance already in Creating is replaced there instead and stays
// a creation.
func (t *Transaction) MoveToModifying(instance AppInstance) {
	if t.Creating.Contains(instance.InstanceID) {
		// Keep it as a creation - modifying a not-yet-existing instance is
		// still a creation from the live set's point of view.
		t.Creating.Add(instance)
		return
	}
	t.Deleting.Remove(instance.InstanceID)
	t.Modifying.Add(instance)
}

// MoveToDeleting places instance in Deleting, removing it from the other two
// sets.
func (t *Transaction) MoveToDeleting(instance AppInstance) {
	t.Creating.Remove(instance.InstanceID)
	t.Modifying.Remove(instance.InstanceID)
	t.Deleting.Add(instance)
}

// CreatingOrModifying returns the union of Creating and Modifying, in
// Creating-then-Modifying order.
func (t *Transaction) CreatingOrModifying() []AppInstance {
	out := make([]AppInstance, 0, t.Creating.Len()+t.Modifying.Len())
	out = append(out, t.Creating.List()...)
	out = append(out, t.Modifying.List()...)
	return out
}

// Lookup returns the instance currently known to the transaction under id,
// preferring the scratch sets (in Creating, then Modifying order) over the
// live snapshot passed in as fallback.
func (t *Transaction) Lookup(id uuid.UUID, live []AppInstance) (AppInstance, bool) {
	if v, ok := t.Creating.Get(id); ok {
		return v, true
	}
	if v, ok := t.Modifying.Get(id); ok {
		return v, true
	}
	if t.Deleting.Contains(id) {
		return AppInstance{}, false
	}
	for _, instance := range live {
		if instance.InstanceID == id {
			return instance, true
		}
	}
	return AppInstance{}, false
}

// UpdateValues is the result handed back to the caller of install/update/delete.
type UpdateValues struct {
	Root              *AppInstance
	CreatedOrModified []AppInstance
	Deleted           []AppInstance
	Warnings          []string
}
