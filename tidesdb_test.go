package tidesdb

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(Config{DBPath: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createTestCF(t *testing.T, db *DB, name string) {
	t.Helper()
	err := db.CreateColumnFamily(ColumnFamilyConfig{
		Name:           name,
		FlushThreshold: 1 << 20,
		MaxLevel:       12,
		Probability:    0.24,
		Compressed:     false,
	})
	if err != nil {
		t.Fatalf("CreateColumnFamily: %v", err)
	}
}

func TestPutGet(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("k"), []byte("v"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, err := db.Get("cf1", []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("Get = %q, want %q", v, "v")
	}
}

func TestGetMissingKey(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	_, err := db.Get("cf1", []byte("missing"))
	if !IsKind(err, KindKeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func TestDeleteHidesValue(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("x"), []byte("1"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Delete("cf1", []byte("x")); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err := db.Get("cf1", []byte("x"))
	if !IsKind(err, KindKeyNotFound) {
		t.Fatalf("expected KeyNotFound after delete, got %v", err)
	}
}

func TestTTLExpiry(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("t"), []byte("v"), time.Now().Add(-time.Second).Unix()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := db.Get("cf1", []byte("t"))
	if !IsKind(err, KindKeyNotFound) {
		t.Fatalf("expected expired key to read as KeyNotFound, got %v", err)
	}
}

func TestCreateColumnFamilyValidation(t *testing.T) {
	db := openTestDB(t)

	cases := []struct {
		cfg  ColumnFamilyConfig
		kind Kind
	}{
		{ColumnFamilyConfig{Name: "a", FlushThreshold: 1 << 20, MaxLevel: 5, Probability: 0.1}, KindNameTooShort},
		{ColumnFamilyConfig{Name: "ab", FlushThreshold: 1, MaxLevel: 5, Probability: 0.1}, KindThresholdTooLow},
		{ColumnFamilyConfig{Name: "ab", FlushThreshold: 1 << 20, MaxLevel: 1, Probability: 0.1}, KindLevelTooLow},
		{ColumnFamilyConfig{Name: "ab", FlushThreshold: 1 << 20, MaxLevel: 5, Probability: 0.01}, KindProbabilityTooLow},
	}

	for _, tt := range cases {
		err := db.CreateColumnFamily(tt.cfg)
		if !IsKind(err, tt.kind) {
			t.Errorf("CreateColumnFamily(%+v) = %v, want kind %s", tt.cfg, err, tt.kind)
		}
	}
}

func TestCreateColumnFamilyDuplicate(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	err := db.CreateColumnFamily(ColumnFamilyConfig{Name: "cf1", FlushThreshold: 1 << 20, MaxLevel: 5, Probability: 0.1})
	if !IsKind(err, KindCFExists) {
		t.Fatalf("expected CFExists, got %v", err)
	}
}

func TestDropColumnFamily(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.DropColumnFamily("cf1"); err != nil {
		t.Fatalf("DropColumnFamily: %v", err)
	}

	_, err := db.Get("cf1", []byte("x"))
	if !IsKind(err, KindCFNotFound) {
		t.Fatalf("expected CFNotFound after drop, got %v", err)
	}
}

func TestFlushThenRead(t *testing.T) {
	db := openTestDB(t)
	err := db.CreateColumnFamily(ColumnFamilyConfig{
		Name:           "cf1",
		FlushThreshold: 1 << 20,
		MaxLevel:       5,
		Probability:    0.1,
	})
	if err != nil {
		t.Fatalf("CreateColumnFamily: %v", err)
	}

	value := make([]byte, 1024)
	for i := 0; i < 2048; i++ {
		key := []byte{byte(i), byte(i >> 8)}
		if err := db.Put("cf1", key, value, -1); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	db.flush.mu.Lock()
	for db.flush.queue.Len() > 0 {
		db.flush.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		db.flush.mu.Lock()
	}
	db.flush.mu.Unlock()
	time.Sleep(50 * time.Millisecond)

	v, err := db.Get("cf1", []byte{0, 0})
	if err != nil {
		t.Fatalf("Get after flush: %v", err)
	}
	if len(v) != 1024 {
		t.Fatalf("Get after flush returned %d bytes, want 1024", len(v))
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("b"), []byte("old"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	txn := db.TxnBegin("cf1")
	txn.TxnPut([]byte("a"), []byte("1"), -1)
	if err := db.TxnDelete(txn, []byte("b")); err != nil {
		t.Fatalf("TxnDelete: %v", err)
	}

	if err := db.TxnCommit(txn); err != nil {
		t.Fatalf("TxnCommit: %v", err)
	}

	if v, err := db.Get("cf1", []byte("a")); err != nil || string(v) != "1" {
		t.Fatalf("Get(a) after commit = %q, %v", v, err)
	}
	if _, err := db.Get("cf1", []byte("b")); !IsKind(err, KindKeyNotFound) {
		t.Fatalf("expected b deleted after commit, got %v", err)
	}

	if err := db.TxnRollback(txn); err != nil {
		t.Fatalf("TxnRollback: %v", err)
	}

	if _, err := db.Get("cf1", []byte("a")); !IsKind(err, KindKeyNotFound) {
		t.Fatalf("expected a gone after rollback, got %v", err)
	}
	if v, err := db.Get("cf1", []byte("b")); err != nil || string(v) != "old" {
		t.Fatalf("Get(b) after rollback = %q, %v, want restored value", v, err)
	}

	txn.TxnFree()
}

func TestCursorForward(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	for _, k := range []string{"c", "a", "b"} {
		if err := db.Put("cf1", []byte(k), []byte(k), -1); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cur, err := db.CursorInit("cf1")
	if err != nil {
		t.Fatalf("CursorInit: %v", err)
	}
	defer cur.Free()

	var got []string
	for cur.Next() {
		kv, err := cur.Get()
		if err != nil {
			continue
		}
		got = append(got, string(kv.Key))
	}

	if len(got) != 3 {
		t.Fatalf("cursor returned %d entries, want 3: %v", len(got), got)
	}
}

func TestCursorBackwardAcrossMemtableAndSSTable(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("a"), []byte("1"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put("cf1", []byte("b"), []byte("2"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	flushNow(t, db, "cf1")

	if err := db.Put("cf1", []byte("c"), []byte("3"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	cur, err := db.CursorInit("cf1")
	if err != nil {
		t.Fatalf("CursorInit: %v", err)
	}
	defer cur.Free()

	var forward []string
	for cur.Next() {
		kv, err := cur.Get()
		if err != nil {
			continue
		}
		forward = append(forward, string(kv.Key))
	}
	if len(forward) != 3 {
		t.Fatalf("forward walk returned %d entries, want 3: %v", len(forward), forward)
	}

	cur2, err := db.CursorInit("cf1")
	if err != nil {
		t.Fatalf("CursorInit: %v", err)
	}
	defer cur2.Free()

	var backward []string
	for cur2.Prev() {
		kv, err := cur2.Get()
		if err != nil {
			continue
		}
		backward = append(backward, string(kv.Key))
	}
	if len(backward) != 3 {
		t.Fatalf("backward walk returned %d entries, want 3: %v", len(backward), backward)
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(Config{DBPath: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	createTestCF(t, db, "cf1")
	if err := db.Put("cf1", []byte("k"), []byte("v"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(Config{DBPath: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, err := reopened.Get("cf1", []byte("k"))
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if string(v) != "v" {
		t.Fatalf("Get after reopen = %q, want v", v)
	}
}

func TestNGet(t *testing.T) {
	db := openTestDB(t)
	createTestCF(t, db, "cf1")

	if err := db.Put("cf1", []byte("a"), []byte("1"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put("cf1", []byte("b"), []byte("2"), -1); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := db.NGet("cf1", [][]byte{[]byte("a"), []byte("b"), []byte("missing")})
	if err != nil {
		t.Fatalf("NGet: %v", err)
	}
	if len(out) != 2 || string(out["a"]) != "1" || string(out["b"]) != "2" {
		t.Fatalf("NGet = %v, want a=1 b=2", out)
	}
}
