package object

import (
	"math"

	"github.com/tiro-lang/tiro/internal/heap"
	"github.com/tiro-lang/tiro/internal/value"
)

// Open-addressing robin-hood hash table (spec.md §4.6), grounded directly
// on original_source/src/tiro/objects/hash_tables.cpp. entries is a
// separate heap object (HashTableStorage) holding an append-only array of
// (hash, key, value) triples in insertion order; indices is a dense,
// size-classed integer buffer mapping ideal-probe buckets to positions in
// entries. A deleted entry carries the sentinel hash deletedHash.

const deletedHash = ^uint64(0)

// makeHash truncates a raw hash into the valid range: the sentinel value
// itself is reserved for tombstones, so a raw hash that happens to equal it
// is folded to zero (original_source hash_tables.cpp: HashTableEntry::make_hash).
func makeHash(raw uint64) uint64 {
	if raw == deletedHash {
		return 0
	}
	return raw
}

// HashTableEntry is one (possibly deleted) slot of a HashTableStorage.
type HashTableEntry struct {
	Hash  uint64
	Key   value.Value
	Value value.Value
}

func (e HashTableEntry) deleted() bool { return e.Hash == deletedHash }

// HashTableStorage is the append-only entries array (spec.md §3.3).
type HashTableStorage struct {
	hdr     heap.Header
	entries []HashTableEntry
}

func init() {
	heap.RegisterType(value.KindHashTableStorage, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			s := (*HashTableStorage)(asPointer(h))
			for _, e := range s.entries {
				if e.deleted() {
					continue
				}
				visit(e.Key)
				visit(e.Value)
			}
		},
	})
}

func newHashTableStorage(h *heap.Heap, capacity int) value.Value {
	o := heap.AllocateFixed[HashTableStorage](h, value.KindHashTableStorage, uintptr(24*capacity))
	o.entries = make([]HashTableEntry, 0, capacity)
	return o.hdr.AsValue()
}

func storageOf(v value.Value) *HashTableStorage { return (*HashTableStorage)(ptrOf(v)) }

// indexBuffer is the size-classed dense integer buffer mapping buckets to
// entry positions (GLOSSARY "Size class"). empty() is the reserved
// empty-bucket marker: the element type's maximum value.
type indexBuffer interface {
	len() int
	get(i int) uint64
	set(i int, v uint64)
	empty() uint64
}

type idxU8 []uint8

func (b idxU8) len() int           { return len(b) }
func (b idxU8) get(i int) uint64   { return uint64(b[i]) }
func (b idxU8) set(i int, v uint64) { b[i] = uint8(v) }
func (b idxU8) empty() uint64      { return uint64(math.MaxUint8) }

type idxU16 []uint16

func (b idxU16) len() int            { return len(b) }
func (b idxU16) get(i int) uint64    { return uint64(b[i]) }
func (b idxU16) set(i int, v uint64) { b[i] = uint16(v) }
func (b idxU16) empty() uint64       { return uint64(math.MaxUint16) }

type idxU32 []uint32

func (b idxU32) len() int            { return len(b) }
func (b idxU32) get(i int) uint64    { return uint64(b[i]) }
func (b idxU32) set(i int, v uint64) { b[i] = uint32(v) }
func (b idxU32) empty() uint64       { return uint64(math.MaxUint32) }

type idxU64 []uint64

func (b idxU64) len() int            { return len(b) }
func (b idxU64) get(i int) uint64    { return b[i] }
func (b idxU64) set(i int, v uint64) { b[i] = v }
func (b idxU64) empty() uint64       { return math.MaxUint64 }

// newIndexBuffer picks the smallest size class whose empty-bucket marker
// exceeds capacity, filled with that class's empty marker.
func newIndexBuffer(capacity int) indexBuffer {
	switch {
	case capacity < math.MaxUint8:
		b := make(idxU8, capacity)
		for i := range b {
			b[i] = math.MaxUint8
		}
		return b
	case capacity < math.MaxUint16:
		b := make(idxU16, capacity)
		for i := range b {
			b[i] = math.MaxUint16
		}
		return b
	case capacity < math.MaxUint32:
		b := make(idxU32, capacity)
		for i := range b {
			b[i] = math.MaxUint32
		}
		return b
	default:
		b := make(idxU64, capacity)
		for i := range b {
			b[i] = math.MaxUint64
		}
		return b
	}
}

const (
	initialEntriesCapacity = 6
	initialIndexCapacity   = 8
)

// HashTable is the robin-hood open-addressing map of spec.md §4.6.
type HashTable struct {
	hdr     heap.Header
	storage value.Value // Null until first insert; else a HashTableStorage
	indices indexBuffer
	size    int
	mask    uint64
}

func init() {
	heap.RegisterType(value.KindHashTable, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			t := (*HashTable)(asPointer(h))
			if !t.storage.IsNull() {
				visit(t.storage)
			}
		},
	})
}

// NewHashTable allocates an empty HashTable.
func NewHashTable(h *heap.Heap) value.Value {
	o := heap.AllocateFixed[HashTable](h, value.KindHashTable, 40)
	o.storage = value.Null
	return o.hdr.AsValue()
}

func tableOf(v value.Value) *HashTable { return (*HashTable)(ptrOf(v)) }

// Size returns the number of live entries.
func HashTableSize(v value.Value) int { return tableOf(v).size }

func (t *HashTable) bucketFor(h uint64) uint64    { return h & t.mask }
func (t *HashTable) nextBucket(b uint64) uint64   { return (b + 1) & t.mask }

// distanceFromIdeal is the robin-hood displacement of an entry whose hash
// is entryHash but which currently sits at bucket.
func (t *HashTable) distanceFromIdeal(entryHash, bucket uint64) uint64 {
	ideal := t.bucketFor(entryHash)
	return (bucket - ideal) & t.mask
}

func (t *HashTable) entriesCapacity() int {
	if t.storage.IsNull() {
		return 0
	}
	return cap(storageOf(t.storage).entries)
}

func (t *HashTable) entriesLen() int {
	if t.storage.IsNull() {
		return 0
	}
	return len(storageOf(t.storage).entries)
}

func (t *HashTable) entriesFull() bool {
	return t.entriesLen() == t.entriesCapacity()
}

// initFirst lazily allocates the first entries/index arrays (original
// source: init_first), called on the first HashTableSet.
func (t *HashTable) initFirst(h *heap.Heap) {
	t.storage = newHashTableStorage(h, initialEntriesCapacity)
	t.indices = newIndexBuffer(initialIndexCapacity)
	t.size = 0
	t.mask = initialIndexCapacity - 1
}

// ensureFreeCapacity grows or compacts so that at least one free slot
// exists in both entries and the index (original source: ensure_free_capacity).
func (t *HashTable) ensureFreeCapacity(h *heap.Heap) {
	if t.storage.IsNull() {
		t.initFirst(h)
		return
	}
	if !t.entriesFull() {
		return
	}
	shouldGrow := (t.size / 3) >= (t.entriesCapacity() / 4)
	if shouldGrow {
		t.grow(h)
	} else {
		t.compact()
	}
}

// grow doubles the index capacity and resizes entries to 3/4 of that,
// rehashing every live entry into a fresh index (original source: grow).
func (t *HashTable) grow(h *heap.Heap) {
	newIndexCap := t.indices.len() << 1
	newEntriesCap := newIndexCap - newIndexCap/4

	oldStorage := storageOf(t.storage)
	newStorageVal := newHashTableStorage(h, newEntriesCap)
	newStorage := storageOf(newStorageVal)
	for _, e := range oldStorage.entries {
		if !e.deleted() {
			newStorage.entries = append(newStorage.entries, e)
		}
	}

	t.storage = newStorageVal
	t.indices = newIndexBuffer(newIndexCap)
	t.mask = uint64(newIndexCap - 1)
	t.rehashIndex()
}

// compact removes tombstones in place, preserving insertion order, and
// rehashes the index (original source: compact).
func (t *HashTable) compact() {
	storage := storageOf(t.storage)
	live := storage.entries[:0:cap(storage.entries)]
	for _, e := range storage.entries {
		if !e.deleted() {
			live = append(live, e)
		}
	}
	storage.entries = live
	t.rehashIndex()
}

func (t *HashTable) rehashIndex() {
	for i := 0; i < t.indices.len(); i++ {
		t.indices.set(i, t.indices.empty())
	}
	storage := storageOf(t.storage)
	for i, e := range storage.entries {
		t.insertIndex(uint64(i), e.Hash)
	}
}

// insertIndex runs the robin-hood probe-and-steal loop to place entryIndex
// (already appended to entries) into the index, without touching entries
// itself (original source: the loop body of set_impl, generalized for
// reuse by both HashTableSet and rehashIndex).
func (t *HashTable) insertIndex(entryIndex, entryHash uint64) {
	storage := storageOf(t.storage)
	bucket := t.bucketFor(entryHash)
	distance := uint64(0)
	indexToInsert := entryIndex

	for {
		occupant := t.indices.get(int(bucket))
		if occupant == t.indices.empty() {
			t.indices.set(int(bucket), indexToInsert)
			return
		}

		occupantEntry := storage.entries[occupant]
		occupantDistance := t.distanceFromIdeal(occupantEntry.Hash, bucket)
		if occupantDistance < distance {
			t.indices.set(int(bucket), indexToInsert)
			indexToInsert, distance = occupant, occupantDistance
		}

		bucket = t.nextBucket(bucket)
		distance++
	}
}

// HashTableSet inserts or overwrites key -> val.
func HashTableSet(h *heap.Heap, tv value.Value, key, val value.Value) {
	t := tableOf(tv)
	t.ensureFreeCapacity(h)

	storage := storageOf(t.storage)
	keyHash := makeHash(Hash(key))
	bucket := t.bucketFor(keyHash)
	distance := uint64(0)
	indexToInsert := uint64(len(storage.entries))
	stolen := false

	for {
		occupant := t.indices.get(int(bucket))
		if occupant == t.indices.empty() {
			t.indices.set(int(bucket), indexToInsert)
			break
		}

		occupantEntry := storage.entries[occupant]
		occupantDistance := t.distanceFromIdeal(occupantEntry.Hash, bucket)
		if occupantDistance < distance {
			stolen = true
			t.indices.set(int(bucket), indexToInsert)
			indexToInsert, distance = occupant, occupantDistance
			break
		}

		if occupantEntry.Hash == keyHash && Equal(occupantEntry.Key, key) {
			storage.entries[occupant] = HashTableEntry{Hash: keyHash, Key: occupantEntry.Key, Value: val}
			return
		}

		bucket = t.nextBucket(bucket)
		distance++
	}

	storage.entries = append(storage.entries, HashTableEntry{Hash: keyHash, Key: key, Value: val})
	t.size++

	if stolen {
		for {
			bucket = t.nextBucket(bucket)
			distance++

			occupant := t.indices.get(int(bucket))
			if occupant == t.indices.empty() {
				t.indices.set(int(bucket), indexToInsert)
				break
			}

			occupantEntry := storage.entries[occupant]
			occupantDistance := t.distanceFromIdeal(occupantEntry.Hash, bucket)
			if occupantDistance < distance {
				t.indices.set(int(bucket), indexToInsert)
				indexToInsert, distance = occupant, occupantDistance
			}
		}
	}
}

// findImpl is the robin-hood lookup probe (original source: find_impl). It
// returns the bucket and the entries-array index, or ok=false.
func (t *HashTable) findImpl(key value.Value) (bucket, entryIndex uint64, ok bool) {
	if t.storage.IsNull() || t.size == 0 {
		return 0, 0, false
	}
	storage := storageOf(t.storage)
	keyHash := makeHash(Hash(key))
	bucket = t.bucketFor(keyHash)
	distance := uint64(0)

	for {
		occupant := t.indices.get(int(bucket))
		if occupant == t.indices.empty() {
			return 0, 0, false
		}

		entry := storage.entries[occupant]
		if distance > t.distanceFromIdeal(entry.Hash, bucket) {
			return 0, 0, false
		}

		if entry.Hash == keyHash && Equal(entry.Key, key) {
			return bucket, occupant, true
		}

		bucket = t.nextBucket(bucket)
		distance++
	}
}

// HashTableGet returns the value for key, or Null plus ok=false if absent.
func HashTableGet(tv value.Value, key value.Value) (value.Value, bool) {
	t := tableOf(tv)
	_, idx, ok := t.findImpl(key)
	if !ok {
		return value.Null, false
	}
	return storageOf(t.storage).entries[idx].Value, true
}

// HashTableContains reports whether key is present.
func HashTableContains(tv value.Value, key value.Value) bool {
	t := tableOf(tv)
	_, _, ok := t.findImpl(key)
	return ok
}

// HashTableRemove deletes key if present (original source: remove_impl).
func HashTableRemove(tv value.Value, key value.Value) {
	t := tableOf(tv)
	if t.storage.IsNull() || t.size == 0 {
		return
	}
	bucket, idx, ok := t.findImpl(key)
	if !ok {
		return
	}

	storage := storageOf(t.storage)
	if int(idx) == len(storage.entries)-1 {
		storage.entries = storage.entries[:len(storage.entries)-1]
	} else {
		storage.entries[idx] = HashTableEntry{Hash: deletedHash}
	}
	t.size--
	if t.size == 0 {
		storage.entries = storage.entries[:0]
	}

	t.removeFromIndex(bucket)

	if t.size <= t.entriesLen()/2 {
		t.compact()
	}
}

// removeFromIndex clears erasedBucket and shifts back any entries whose
// displacement would improve, preserving the robin-hood invariant
// (original source: remove_from_index).
func (t *HashTable) removeFromIndex(erasedBucket uint64) {
	storage := storageOf(t.storage)
	t.indices.set(int(erasedBucket), t.indices.empty())

	current := t.nextBucket(erasedBucket)
	for {
		occupant := t.indices.get(int(current))
		if occupant == t.indices.empty() {
			return
		}
		entry := storage.entries[occupant]
		if t.distanceFromIdeal(entry.Hash, current) == 0 {
			return
		}
		t.indices.set(int(erasedBucket), occupant)
		t.indices.set(int(current), t.indices.empty())
		erasedBucket = current
		current = t.nextBucket(current)
	}
}

// HashTableIsPacked reports whether entries contains no tombstones.
func HashTableIsPacked(tv value.Value) bool {
	t := tableOf(tv)
	if t.size == 0 {
		return true
	}
	return t.size == t.entriesLen()
}

// HashTableIterator is the stateful cursor of spec.md §8's round-trip
// property ("packing a HashTable preserves iteration order") —
// original_source exposes this as a first-class object
// (src/tiro/objects/hash_tables.cpp HashTableIterator), so it is kept as
// one here (SPEC_FULL.md Supplemented Features) rather than flattened
// into a one-shot slice.
type HashTableIterator struct {
	hdr   heap.Header
	table value.Value
	pos   int
}

func init() {
	heap.RegisterType(value.KindHashTableIterator, &heap.TypeDescriptor{
		MayContainReferences: true,
		Walk: func(h *heap.Header, visit func(value.Value)) {
			visit((*HashTableIterator)(asPointer(h)).table)
		},
	})
}

// NewHashTableIterator allocates an iterator positioned before the first entry.
func NewHashTableIterator(h *heap.Heap, table value.Value) value.Value {
	o := heap.AllocateFixed[HashTableIterator](h, value.KindHashTableIterator, 24)
	o.table = table
	return o.hdr.AsValue()
}

// HashTableIteratorNext advances the iterator, returning the next live
// (key, value) pair, or ok=false once exhausted.
func HashTableIteratorNext(iv value.Value) (key, val value.Value, ok bool) {
	it := (*HashTableIterator)(ptrOf(iv))
	t := tableOf(it.table)
	if t.storage.IsNull() {
		return value.Null, value.Null, false
	}
	storage := storageOf(t.storage)
	for it.pos < len(storage.entries) {
		e := storage.entries[it.pos]
		it.pos++
		if !e.deleted() {
			return e.Key, e.Value, true
		}
	}
	return value.Null, value.Null, false
}
