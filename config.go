package tidesdb

// Config configures a database instance at Open time.
type Config struct {
	// DBPath is the root directory; column families live under
	// DBPath/<name>/ and the WAL lives at DBPath/wal.
	DBPath string

	// CompressedWAL enables the LZ77-style compressor package on every
	// WAL append, independent of any column family's own Compressed
	// flag.
	CompressedWAL bool

	// Logging enables structured logrus output for lifecycle and
	// background-worker events. Off by default, matching the
	// teacher's opt-in logging flag.
	Logging bool

	// CompactionIntervalSeconds, when non-zero, starts one background
	// goroutine that, every this many seconds, calls CompactSSTables
	// (with 2 threads) on each column family holding at least two
	// SSTables. Zero (the default) disables it, leaving compaction
	// fully explicit.
	CompactionIntervalSeconds int
}
