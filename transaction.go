package tidesdb

type txnOpKind int

const (
	txnOpPut txnOpKind = iota
	txnOpDelete
)

// txnOp is one buffered mutation plus everything needed to undo it.
type txnOp struct {
	kind      txnOpKind
	key       []byte
	value     []byte
	ttl       int64
	committed bool

	// priorValue and hadPrior capture the value overwritten by a
	// DELETE at the moment TxnDelete was called, so Rollback can
	// restore it exactly instead of leaving an empty value (Open
	// Question #3's resolution).
	priorValue []byte
	hadPrior   bool
}

// Txn is an ordered buffer of operations scoped to a single column
// family, applied atomically on Commit.
type Txn struct {
	cfName string
	ops    []*txnOp
}

// TxnBegin starts a new transaction against cfName. The column family
// is not resolved until Commit, matching the spec's "scoped to one CF
// by name" phrasing.
func (db *DB) TxnBegin(cfName string) *Txn {
	return &Txn{cfName: cfName}
}

// TxnPut buffers a PUT of key/value with the given ttl.
func (txn *Txn) TxnPut(key, value []byte, ttl int64) {
	txn.ops = append(txn.ops, &txnOp{kind: txnOpPut, key: key, value: value, ttl: ttl})
}

// TxnDelete buffers a DELETE of key, capturing its current value (if
// any) from db immediately so Rollback can restore it later.
func (db *DB) TxnDelete(txn *Txn, key []byte) error {
	cf, err := db.getCF(txn.cfName)
	if err != nil {
		return err
	}

	op := &txnOp{kind: txnOpDelete, key: key}
	if v, ok := cf.memtableGet(key); ok {
		op.priorValue = append([]byte{}, v...)
		op.hadPrior = true
	} else if v, gerr := db.Get(txn.cfName, key); gerr == nil {
		op.priorValue = v
		op.hadPrior = true
	}

	txn.ops = append(txn.ops, op)
	return nil
}

// TxnCommit applies every not-yet-committed op to the column family's
// memtable as one atomic unit under its write lock, then checks
// whether a flush should be enqueued exactly as a standalone Put
// would.
func (db *DB) TxnCommit(txn *Txn) error {
	cf, err := db.getCF(txn.cfName)
	if err != nil {
		return err
	}

	cf.memtable.Lock()
	for _, op := range txn.ops {
		if op.committed {
			continue
		}
		switch op.kind {
		case txnOpPut:
			cf.memtablePutLocked(op.key, op.value, op.ttl)
		case txnOpDelete:
			cf.memtableDeleteLocked(op.key)
		}
		op.committed = true
	}
	cf.memtable.Unlock()

	db.maybeEnqueueFlush(cf)
	return nil
}

// TxnRollback applies the inverse of every committed op, in reverse
// order: a PUT is undone with a delete, a DELETE is undone by
// restoring the value captured at TxnDelete time (or left absent if
// there was none).
func (db *DB) TxnRollback(txn *Txn) error {
	cf, err := db.getCF(txn.cfName)
	if err != nil {
		return err
	}

	cf.memtable.Lock()
	defer cf.memtable.Unlock()

	for i := len(txn.ops) - 1; i >= 0; i-- {
		op := txn.ops[i]
		if !op.committed {
			continue
		}
		switch op.kind {
		case txnOpPut:
			cf.memtableDeleteLocked(op.key)
		case txnOpDelete:
			if op.hadPrior {
				cf.memtablePutLocked(op.key, op.priorValue, noExpiry)
			} else {
				cf.memtableDeleteLocked(op.key)
			}
		}
		op.committed = false
	}

	return nil
}

// TxnFree discards any buffered, uncommitted op records.
func (txn *Txn) TxnFree() {
	kept := txn.ops[:0]
	for _, op := range txn.ops {
		if op.committed {
			kept = append(kept, op)
		}
	}
	txn.ops = kept
}

