// Command tidesctl is an in-process administrative CLI over a single
// tidesdb database directory: every invocation opens the db, performs
// one operation, and closes it again. There is no client/server split
// and no networking, matching the engine's embedded-only scope.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hp77-creator/tidesdb-hp"
	"github.com/spf13/cobra"
)

var (
	dbPath        string
	compressedWAL bool
)

func main() {
	root := &cobra.Command{
		Use:   "tidesctl",
		Short: "Administer a tidesdb database directory",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "database directory (required)")
	root.PersistentFlags().BoolVar(&compressedWAL, "compressed-wal", false, "enable WAL compression")
	root.MarkPersistentFlagRequired("db")

	root.AddCommand(
		createCFCmd(),
		dropCFCmd(),
		putCmd(),
		getCmd(),
		deleteCmd(),
		compactCmd(),
		cursorDumpCmd(),
		statCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func open() (*tidesdb.DB, error) {
	return tidesdb.Open(tidesdb.Config{DBPath: dbPath, CompressedWAL: compressedWAL})
}

func createCFCmd() *cobra.Command {
	var threshold, level int
	var probability float64
	var compressed bool

	cmd := &cobra.Command{
		Use:   "create-cf NAME",
		Short: "Create a column family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			return db.CreateColumnFamily(tidesdb.ColumnFamilyConfig{
				Name:           args[0],
				FlushThreshold: int32(threshold),
				MaxLevel:       int32(level),
				Probability:    float32(probability),
				Compressed:     compressed,
			})
		},
	}
	cmd.Flags().IntVar(&threshold, "flush-threshold", 1<<20, "flush threshold in bytes")
	cmd.Flags().IntVar(&level, "max-level", 12, "max sstable level")
	cmd.Flags().Float64Var(&probability, "probability", 0.24, "bloom filter probability")
	cmd.Flags().BoolVar(&compressed, "compressed", false, "enable per-cf compression")
	return cmd
}

func dropCFCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-cf NAME",
		Short: "Drop a column family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.DropColumnFamily(args[0])
		},
	}
}

func putCmd() *cobra.Command {
	var ttl int64
	cmd := &cobra.Command{
		Use:   "put CF KEY VALUE",
		Short: "Write a key/value pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Put(args[0], []byte(args[1]), []byte(args[2]), ttl)
		},
	}
	cmd.Flags().Int64Var(&ttl, "ttl", -1, "absolute epoch-second expiry, -1 for none")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get CF KEY",
		Short: "Read a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := db.Get(args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Println(string(v))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CF KEY",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.Delete(args[0], []byte(args[1]))
		},
	}
}

func compactCmd() *cobra.Command {
	var threads int
	cmd := &cobra.Command{
		Use:   "compact CF",
		Short: "Compact a column family's sstables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			return db.CompactSSTables(args[0], threads)
		},
	}
	cmd.Flags().IntVar(&threads, "threads", 2, "max compaction worker threads")
	return cmd
}

func cursorDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cursor-dump CF",
		Short: "Walk a column family forward, printing every live record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			cur, err := db.CursorInit(args[0])
			if err != nil {
				return err
			}
			defer cur.Free()

			for cur.Next() {
				kv, err := cur.Get()
				if err != nil {
					continue
				}
				fmt.Printf("%s=%s ttl=%s\n", kv.Key, kv.Value, strconv.FormatInt(kv.TTL, 10))
			}
			return nil
		},
	}
}

func statCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat CF",
		Short: "Print operational stats for a column family",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			s, err := db.Stats(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("memtable_size=%d sstable_count=%d last_compaction=%s\n",
				s.MemtableSize, s.SSTableCount, s.LastCompaction)
			return nil
		},
	}
}
