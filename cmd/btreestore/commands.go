package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"btreestore/blockdevice"
	"btreestore/bplustree"
	"btreestore/bufferpool"
	"btreestore/codec"
	"btreestore/config"
	"btreestore/gateway"
)

func buildOptions() bplustree.Options[int64, string] {
	mode := bufferpool.WriteThrough
	if writeMode == string(config.WriteBack) {
		mode = bufferpool.WriteBack
	}
	return bplustree.Options[int64, string]{
		Order:         order,
		PageSize:      pageSize,
		CacheCapacity: cacheCapacity,
		WriteMode:     mode,
		KeyCodec:      codec.Int64{},
		ValueCodec:    codec.String{},
		Compare: func(a, b int64) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			default:
				return 0
			}
		},
	}
}

func loadOptionsFromConfig() (bplustree.Options[int64, string], *config.Config, error) {
	if configPath == "" {
		return buildOptions(), nil, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return bplustree.Options[int64, string]{}, nil, err
	}
	storePath = cfg.StoreName
	opts := bplustree.Options[int64, string]{
		Order:         cfg.Order,
		PageSize:      cfg.PageSize,
		CacheCapacity: cfg.CacheCapacity,
		WriteMode:     cfg.BufferPoolMode(),
		KeyCodec:      codec.Int64{},
		ValueCodec:    codec.String{},
		Compare:       buildOptions().Compare,
	}
	return opts, &cfg, nil
}

// withStore opens (or creates) the store named by --store (or by the config
// file's store_name when --config is given), runs fn against
// a gateway, then submits OpClose and shuts the gateway's goroutine down.
func withStore(create bool, fn func(ctx context.Context, g *gateway.Gateway[int64, string]) error) error {
	opts, cfg, err := loadOptionsFromConfig()
	if err != nil {
		return err
	}

	opener := blockdevice.OSOpener{}
	g := gateway.New[int64, string](opener)
	if cfg != nil {
		g.SetLogger(cfg.LoggerOrDefault())
	}
	defer g.Shutdown()

	ctx := context.Background()
	_, err = g.Do(ctx, gateway.Request[int64, string]{
		Op: gateway.OpInitialize,
		Init: gateway.InitializeParams[int64, string]{
			StoreName:    storePath,
			Options:      opts,
			OpenExisting: !create,
		},
	})
	if err != nil {
		return err
	}

	if err := fn(ctx, g); err != nil {
		return err
	}

	_, err = g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpClose})
	return err
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new store file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(true, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			fmt.Printf("created %s (order=%d)\n", storePath, order)
			return nil
		})
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert <key> <value>",
	Short: "Insert or overwrite a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("key must be an integer: %w", err)
		}
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			_, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: key, Value: args[1]})
			return err
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Look up a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("key must be an integer: %w", err)
		}
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpSearch, Key: key})
			if err != nil {
				return err
			}
			if !resp.Found {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Println(resp.Value)
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("key must be an integer: %w", err)
		}
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpDelete, Key: key})
			if err != nil {
				return err
			}
			fmt.Println(resp.Existed)
			return nil
		})
	},
}

var (
	rangeStart, rangeEnd               int64
	rangeHasStart, rangeHasEnd         bool
	rangeIncludeStart, rangeIncludeEnd bool
	rangeLimit                         int
	rangeReverse                       bool
)

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Scan a key range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{
				Op: gateway.OpRange,
				Range: bplustree.RangeOptions[int64]{
					Start: rangeStart, End: rangeEnd,
					HasStart: rangeHasStart, HasEnd: rangeHasEnd,
					IncludeStart: rangeIncludeStart, IncludeEnd: rangeIncludeEnd,
					Limit: rangeLimit, Reverse: rangeReverse,
				},
			})
			if err != nil {
				return err
			}
			printEntries(resp.Entries)
			return nil
		})
	},
}

func init() {
	rangeCmd.Flags().Int64Var(&rangeStart, "start", 0, "inclusive/exclusive lower bound")
	rangeCmd.Flags().Int64Var(&rangeEnd, "end", 0, "inclusive/exclusive upper bound")
	rangeCmd.Flags().BoolVar(&rangeHasStart, "has-start", false, "apply --start")
	rangeCmd.Flags().BoolVar(&rangeHasEnd, "has-end", false, "apply --end")
	rangeCmd.Flags().BoolVar(&rangeIncludeStart, "include-start", true, "include the start bound")
	rangeCmd.Flags().BoolVar(&rangeIncludeEnd, "include-end", true, "include the end bound")
	rangeCmd.Flags().IntVar(&rangeLimit, "limit", 0, "max entries to return (0 = unlimited)")
	rangeCmd.Flags().BoolVar(&rangeReverse, "reverse", false, "reverse the result order")
}

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "List every entry in key order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpEntries})
			if err != nil {
				return err
			}
			printEntries(resp.Entries)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tree and cache counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpStats})
			if err != nil {
				return err
			}
			s := resp.Stats
			fmt.Printf("keys:        %d\n", s.KeyCount)
			fmt.Printf("nodes:       %d\n", s.NodeCount)
			fmt.Printf("height:      %d\n", s.Height)
			fmt.Printf("root offset: %d\n", s.RootOffset)
			fmt.Printf("free list:   %d\n", s.FreeListHead)
			fmt.Printf("cached:      %d nodes\n", s.CachedNodes)
			fmt.Printf("cache hits:  %d, misses: %d, evictions: %d (%.1f%% hit rate)\n",
				s.Cache.Hits, s.Cache.Misses, s.Cache.Evictions, 100*s.Cache.HitRate())
			fmt.Printf("on disk:     %s\n", humanize.Bytes(s.FileSize))
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check structural invariants",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpVerify})
			if err != nil {
				return err
			}
			if resp.Verify.OK {
				fmt.Printf("OK (%d nodes)\n", resp.Verify.NodesSeen)
				return nil
			}
			fmt.Println("FAILED:")
			for _, v := range resp.Verify.Violations {
				fmt.Println("  -", v)
			}
			return fmt.Errorf("%d invariant violations", len(resp.Verify.Violations))
		})
	},
}

var (
	bulkLoadBatchSize int
	bulkLoadSorted    bool
)

var bulkLoadCmd = &cobra.Command{
	Use:   "bulk-load <n>",
	Short: "Insert n sequential (i, \"v<i>\") entries as a demo workload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("n must be an integer: %w", err)
		}
		entries := make([]bplustree.Entry[int64, string], n)
		for i := 0; i < n; i++ {
			entries[i] = bplustree.Entry[int64, string]{Key: int64(i), Value: fmt.Sprintf("v%d", i)}
		}
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			_, err := g.Do(ctx, gateway.Request[int64, string]{
				Op:      gateway.OpBulkLoad,
				Entries: entries,
				BulkLoad: bplustree.BulkLoadOptions{
					Sorted:    bulkLoadSorted,
					BatchSize: bulkLoadBatchSize,
					Progress: func(loaded, total int) {
						fmt.Printf("loaded %d/%d\n", loaded, total)
					},
				},
			})
			return err
		})
	},
}

func init() {
	bulkLoadCmd.Flags().IntVar(&bulkLoadBatchSize, "batch-size", 100, "entries per progress callback")
	bulkLoadCmd.Flags().BoolVar(&bulkLoadSorted, "sorted", true, "input is already sorted by key")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print header and stats without an insert/delete round trip",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(false, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			resp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpStats})
			if err != nil {
				return err
			}
			fmt.Printf("store:  %s\n", storePath)
			fmt.Printf("height: %d\n", resp.Stats.Height)
			fmt.Printf("nodes:  %d\n", resp.Stats.NodeCount)
			fmt.Printf("keys:   %d\n", resp.Stats.KeyCount)
			return nil
		})
	},
}

// demoCmd replays the worked example from spec.md §8: order=4, keys 1..5.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Replay the order=4, keys 1..5 worked example",
	RunE: func(cmd *cobra.Command, args []string) error {
		order = 4
		return withStore(true, func(ctx context.Context, g *gateway.Gateway[int64, string]) error {
			data := []struct {
				k int64
				v string
			}{
				{1, "a"}, {2, "b"}, {3, "c"}, {4, "d"}, {5, "e"},
			}
			for _, d := range data {
				if _, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpInsert, Key: d.k, Value: d.v}); err != nil {
					return err
				}
			}

			statsResp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpStats})
			if err != nil {
				return err
			}
			fmt.Printf("height: %d (expected 2)\n", statsResp.Stats.Height)

			entriesResp, err := g.Do(ctx, gateway.Request[int64, string]{Op: gateway.OpEntries})
			if err != nil {
				return err
			}
			printEntries(entriesResp.Entries)
			return nil
		})
	},
}

func printEntries(entries []bplustree.Entry[int64, string]) {
	for _, e := range entries {
		fmt.Printf("%d\t%s\n", e.Key, e.Value)
	}
}
