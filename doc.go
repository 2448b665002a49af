package tidesdb

// This file collects the package's public surface for reference; every
// signature here is implemented in a sibling file.
//
//   Open(Config) (*DB, error)
//   (*DB) Close() error
//   (*DB) CreateColumnFamily(ColumnFamilyConfig) error
//   (*DB) DropColumnFamily(name string) error
//   (*DB) CompactSSTables(cfName string, maxThreads int) error
//   (*DB) Put(cfName string, key, value []byte, ttl int64) error
//   (*DB) Get(cfName string, key []byte) ([]byte, error)
//   (*DB) Delete(cfName string, key []byte) error
//   (*DB) TxnBegin(cfName string) *Txn
//   (*Txn) TxnPut(key, value []byte, ttl int64)
//   (*DB) TxnDelete(txn *Txn, key []byte) error
//   (*DB) TxnCommit(txn *Txn) error
//   (*DB) TxnRollback(txn *Txn) error
//   (*Txn) TxnFree()
//   (*DB) CursorInit(cfName string) (*Cursor, error)
//   (*Cursor) Next() bool
//   (*Cursor) Prev() bool
//   (*Cursor) Get() (KV, error)
//   (*Cursor) Free()
