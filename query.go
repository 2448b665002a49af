package tidesdb

// NGet looks up several keys in one call, returning a value for every
// key that was found; missing keys are simply absent from the
// returned map rather than causing the whole call to fail.
func (db *DB) NGet(cfName string, keys [][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := db.Get(cfName, k)
		if err == nil {
			out[string(k)] = v
		} else if !IsKind(err, KindKeyNotFound) {
			return nil, err
		}
	}
	return out, nil
}

// GreaterThan returns every live record in cfName with a key strictly
// greater than start. Records come back in the cursor's own walk order
// (memtable, then each SSTable newest-to-oldest), not a single global
// key ordering.
func (db *DB) GreaterThan(cfName string, start []byte) ([]KV, error) {
	return db.rangeScan(cfName, start, false)
}

// GreaterThanEq returns every live record in cfName with a key greater
// than or equal to start, in the same cursor walk order as GreaterThan.
func (db *DB) GreaterThanEq(cfName string, start []byte) ([]KV, error) {
	return db.rangeScan(cfName, start, true)
}

// LessThan returns every live record in cfName with a key strictly
// less than end. The underlying cursor walks the memtable then each
// SSTable newest-to-oldest rather than a single globally merged order,
// so this filters over the full walk instead of breaking early on the
// first key that fails the bound.
func (db *DB) LessThan(cfName string, end []byte) ([]KV, error) {
	cur, err := db.CursorInit(cfName)
	if err != nil {
		return nil, err
	}
	defer cur.Free()

	var out []KV
	for cur.Next() {
		kv, err := cur.Get()
		if err != nil {
			continue
		}
		if string(kv.Key) < string(end) {
			out = append(out, kv)
		}
	}
	return out, nil
}

func (db *DB) rangeScan(cfName string, start []byte, inclusive bool) ([]KV, error) {
	cur, err := db.CursorInit(cfName)
	if err != nil {
		return nil, err
	}
	defer cur.Free()

	var out []KV
	for cur.Next() {
		kv, err := cur.Get()
		if err != nil {
			continue
		}
		cmp := string(kv.Key) >= string(start)
		if inclusive && !cmp {
			continue
		}
		if !inclusive && string(kv.Key) <= string(start) {
			continue
		}
		out = append(out, kv)
	}
	return out, nil
}
