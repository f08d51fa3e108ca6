package storage

import "errors"

// ErrForeignDB is returned by Join when the namespace lives in another database.
var ErrForeignDB = errors.New("namespace is not backed by the transaction's database")

// Txn buffers writes over a DB. Reads see the buffered writes first, so a
// sequence of dependent updates can be staged and then committed as one
// batch, or dropped entirely by never calling Commit.
//
// Views created with Join stage into the same buffer, so writes to several
// namespaces of one database land in a single batch.
//
// A Txn is not safe for concurrent use; callers serialize access to it.
type Txn struct {
	st     *txnState
	prefix []byte
}

type txnState struct {
	root    DB
	pending map[string][]byte // nil value marks a delete; keys are root keys
	order   []string
	hooks   []func()
}

// NewTxn starts a transaction over db.
func NewTxn(db DB) *Txn {
	root, prefix := Unwrap(db)
	return &Txn{
		st:     &txnState{root: root, pending: make(map[string][]byte)},
		prefix: prefix,
	}
}

// Join returns a view of t that stages writes for db. db must share t's
// root database, otherwise the writes could not commit atomically.
func (t *Txn) Join(db DB) (*Txn, error) {
	root, prefix := Unwrap(db)
	if root != t.st.root {
		return nil, ErrForeignDB
	}
	return &Txn{st: t.st, prefix: prefix}, nil
}

// Unwrap strips any PrefixDB layers from db and returns the root database
// together with the combined key prefix.
func Unwrap(db DB) (DB, []byte) {
	var prefix []byte
	for {
		p, ok := db.(*PrefixDB)
		if !ok {
			return db, prefix
		}
		prefix = append(clone(p.prefix), prefix...)
		db = p.inner
	}
}

func (t *Txn) key(key []byte) string {
	return string(t.prefix) + string(key)
}

// Lookup returns the staged value for key, falling back to the database.
// A missing key is reported as ok=false.
func (t *Txn) Lookup(key []byte) (value []byte, ok bool, err error) {
	k := t.key(key)
	if v, staged := t.st.pending[k]; staged {
		return clone(v), v != nil, nil
	}
	return Lookup(t.st.root, []byte(k))
}

// Put stages a write.
func (t *Txn) Put(key, value []byte) {
	t.stage(t.key(key), cloneNonNil(value))
}

// Delete stages a delete.
func (t *Txn) Delete(key []byte) {
	t.stage(t.key(key), nil)
}

func (t *Txn) stage(k string, value []byte) {
	if _, seen := t.st.pending[k]; !seen {
		t.st.order = append(t.st.order, k)
	}
	t.st.pending[k] = value
}

// OnCommit registers fn to run after a successful Commit.
func (t *Txn) OnCommit(fn func()) {
	t.st.hooks = append(t.st.hooks, fn)
}

// Commit writes every staged change, from every joined view, in one batch
// and runs the commit hooks.
func (t *Txn) Commit() error {
	st := t.st
	if len(st.order) > 0 {
		batch := NewBatch(st.root)
		for _, k := range st.order {
			var err error
			if v := st.pending[k]; v == nil {
				err = batch.Delete([]byte(k))
			} else {
				err = batch.Put([]byte(k), v)
			}
			if err != nil {
				return err
			}
		}
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	for _, fn := range st.hooks {
		fn()
	}
	st.pending = make(map[string][]byte)
	st.order = nil
	st.hooks = nil
	return nil
}
