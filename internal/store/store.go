// Package store provides keyed persistence for warden entities. Records are
// addressed by (repo, kind, id) and serialized as one JSON document per
// entity, so the backend (filesystem, embedded SQL) is swappable without
// touching decision logic.
package store

// Kind classifies the entity being stored. Kinds map to subdirectories in
// the file backend and to a column in the SQL backend.
type Kind string

const (
	// KindWork holds Work Documents, keyed by finding identity.
	KindWork Kind = "work"

	// KindTrust holds Trust Metrics, keyed by agent name.
	KindTrust Kind = "trust"

	// KindImpact holds Merge Impact Records, keyed by merge ID.
	KindImpact Kind = "impact"
)

// Store is the interface for persisting warden entities.
//
// Writers follow a single-writer discipline: Update serializes all
// read-modify-write sequences for one (repo, kind, id) key, so concurrent
// triggers on the same entity cannot silently clobber each other's writes.
// Plain Put is last-write-wins and should only be used for entities the
// caller fully owns.
type Store interface {
	// Get loads the entity into out. A missing or malformed record returns
	// ErrNotFound; absence is not an error condition for callers that treat
	// fresh defaults as valid state.
	Get(repo string, kind Kind, id string, out any) error

	// Put writes the entity, replacing any existing record.
	Put(repo string, kind Kind, id string, v any) error

	// Update runs mutate under the per-key writer lock. out is loaded first
	// (mutate receives exists=false when no record was present), mutated in
	// place, then written back. Write failures propagate.
	Update(repo string, kind Kind, id string, out any, mutate func(exists bool) error) error

	// List returns the IDs of all records of a kind, sorted. Unreadable
	// records are skipped.
	List(repo string, kind Kind) ([]string, error)

	// Delete removes a record. Deleting a missing record is a no-op.
	Delete(repo string, kind Kind, id string) error

	// Init creates any required backing structure.
	Init() error

	// Close releases backend resources.
	Close() error
}
