package decorate

import (
	"fmt"
	"runtime"
	"sync"
	"weak"

	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// sentinel is the one reserved identity receiver-less invocations key on.
// It is process-wide: every store routes no-receiver state through the
// same identity, while store-per-decorator scoping keeps unrelated
// decorators from ever sharing an entry. The object never escapes this
// package, so nothing can stamp, mutate, or alias it.
var sentinel = object.NewLabeled("<no-receiver>")

// Record is the private state a decorator keeps per owner. Fields are a
// union across policies; each policy touches only its own:
// run-at-most-once marks existence, run-at-most-n counts, memoize fills
// the memo table.
type Record struct {
	Count int
	Memo  map[string]object.Value
}

// Store is the identity-keyed state table backing stateful decoration.
// Keys are owner identities (live objects, or the sentinel); comparison is
// reference identity, never structural equality, so two equal-shaped
// objects keep fully separate records.
//
// Entries hold their owners weakly: creating state for a receiver does not
// extend the receiver's lifetime, and the entry is evicted after its owner
// is collected. A record is created on first use per owner and never
// explicitly deleted.
//
// All methods are safe for concurrent use. Claim and Update are the
// compound primitives: Claim is insert-if-absent under one lock (two
// goroutines cannot both see "absent"), Update runs a closure over the
// record with the lock held.
type Store struct {
	mu      sync.Mutex
	entries map[weak.Pointer[object.Object]]*Record
}

// NewStore creates an empty store. Decorate calls this per decoration;
// direct construction is only needed when building custom policies on the
// same isolation substrate.
func NewStore() *Store {
	return &Store{entries: make(map[weak.Pointer[object.Object]]*Record)}
}

// ownerOf resolves a receiver value to the identity its state keys on:
// an object reference keys on its object, no receiver (nil or Undefined)
// keys on the sentinel, and every value kind is rejected.
func ownerOf(recv object.Value) (*object.Object, error) {
	switch v := recv.(type) {
	case nil:
		return sentinel, nil
	case object.Undefined:
		return sentinel, nil
	case object.Ref:
		if v.Target == nil {
			return nil, NewInvalidIdentityKindError("nil reference")
		}
		return v.Target, nil
	default:
		return nil, NewInvalidIdentityKindError(kindName(recv))
	}
}

func kindName(v object.Value) string {
	switch v.(type) {
	case object.String:
		return "string"
	case object.Int:
		return "int"
	case object.Bool:
		return "bool"
	case object.List:
		return "list"
	case object.Record:
		return "record"
	case object.Method:
		return "method"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Has reports whether the receiver's owner already has a record. Fails
// with INVALID_IDENTITY_KIND on value-typed receivers.
func (s *Store) Has(recv object.Value) (bool, error) {
	owner, err := ownerOf(recv)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[weak.Make(owner)]
	return ok, nil
}

// Get returns the owner's record and whether one exists. Fails with
// INVALID_IDENTITY_KIND on value-typed receivers.
func (s *Store) Get(recv object.Value) (*Record, bool, error) {
	owner, err := ownerOf(recv)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[weak.Make(owner)]
	return rec, ok, nil
}

// Set installs or replaces the owner's record. Fails with
// INVALID_IDENTITY_KIND on value-typed receivers.
func (s *Store) Set(recv object.Value, rec *Record) error {
	owner, err := ownerOf(recv)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := weak.Make(owner)
	if _, exists := s.entries[key]; !exists {
		s.watch(owner, key)
	}
	s.entries[key] = rec
	return nil
}

// Claim returns the owner's record, creating it if absent, and reports
// whether it already existed. The check and the insert happen under one
// lock, which is what keeps two concurrent first calls from both passing
// a policy's "has it run" test.
func (s *Store) Claim(recv object.Value) (*Record, bool, error) {
	owner, err := ownerOf(recv)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := weak.Make(owner)
	if rec, ok := s.entries[key]; ok {
		return rec, true, nil
	}
	rec := &Record{}
	s.entries[key] = rec
	s.watch(owner, key)
	return rec, false, nil
}

// Update runs fn over the owner's record with the store lock held,
// creating the record on first use. Policies mutate records only through
// Update so that counters and memo tables stay consistent on a
// multi-threaded host.
func (s *Store) Update(recv object.Value, fn func(rec *Record)) error {
	owner, err := ownerOf(recv)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := weak.Make(owner)
	rec, ok := s.entries[key]
	if !ok {
		rec = &Record{}
		s.entries[key] = rec
		s.watch(owner, key)
	}
	fn(rec)
	return nil
}

// Len returns the number of live entries. Intended for tests.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// watch registers eviction of the owner's entry once the owner is
// collected. Caller holds s.mu. The sentinel lives for the whole process,
// so its entry is never watched.
func (s *Store) watch(owner *object.Object, key weak.Pointer[object.Object]) {
	if owner == sentinel {
		return
	}
	runtime.AddCleanup(owner, func(k weak.Pointer[object.Object]) {
		s.mu.Lock()
		delete(s.entries, k)
		s.mu.Unlock()
	}, key)
}
