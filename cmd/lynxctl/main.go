// Command lynxctl is a thin example collaborator exercising the lynx
// public API end to end: create, insert, search, stats, save, load.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	lynx "github.com/Alexk-195/lynx-vector-db-sub000"
)

var (
	dataPath  string
	dimension int
	indexKind string
	metricKind string
)

func main() {
	root := &cobra.Command{
		Use:   "lynxctl",
		Short: "Exercise a lynx vector database from the command line",
	}
	root.PersistentFlags().StringVar(&dataPath, "data", "./lynxdata", "database directory")
	root.PersistentFlags().IntVar(&dimension, "dim", 4, "vector dimension")
	root.PersistentFlags().StringVar(&indexKind, "index", "flat", "index type: flat|hnsw|ivf")
	root.PersistentFlags().StringVar(&metricKind, "metric", "l2", "distance metric: l2|cosine|dot")

	root.AddCommand(createCmd(), insertCmd(), searchCmd(), statsCmd(), saveCmd(), loadCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildConfig() lynx.Config {
	cfg := lynx.Config{
		Dimension: dimension,
		DataPath:  dataPath,
	}
	switch strings.ToLower(indexKind) {
	case "hnsw":
		cfg.IndexType = lynx.HNSWIndex
		cfg.HNSW = lynx.DefaultHNSWParams(1)
	case "ivf":
		cfg.IndexType = lynx.IVFIndex
		cfg.IVF = lynx.DefaultIVFParams(4, 1)
	default:
		cfg.IndexType = lynx.Flat
	}
	switch strings.ToLower(metricKind) {
	case "cosine":
		cfg.Metric = lynx.Cosine
	case "dot":
		cfg.Metric = lynx.DotProduct
	default:
		cfg.Metric = lynx.L2
	}
	return cfg
}

func openOrCreate() (*lynx.Database, error) {
	db, err := lynx.Create(buildConfig())
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(dataPath + "/lynx.db"); statErr == nil {
		if err := db.Load(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func parseVector(csv string) ([]float32, error) {
	parts := strings.Split(csv, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create an empty database and save its initial snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := lynx.Create(buildConfig())
			if err != nil {
				return err
			}
			return db.Save()
		},
	}
}

func insertCmd() *cobra.Command {
	var id uint64
	var vecStr, meta string
	cmd := &cobra.Command{
		Use:   "insert",
		Short: "Insert a record",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openOrCreate()
			if err != nil {
				return err
			}
			vec, err := parseVector(vecStr)
			if err != nil {
				return err
			}
			if err := db.Insert(lynx.VectorRecord{ID: id, Vector: vec, Metadata: meta}); err != nil {
				return err
			}
			return db.Save()
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "record id")
	cmd.Flags().StringVar(&vecStr, "vector", "", "comma-separated float32 vector")
	cmd.Flags().StringVar(&meta, "meta", "", "opaque metadata string")
	return cmd
}

func searchCmd() *cobra.Command {
	var vecStr string
	var k int
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for the k nearest neighbors",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openOrCreate()
			if err != nil {
				return err
			}
			vec, err := parseVector(vecStr)
			if err != nil {
				return err
			}
			result, err := db.Search(vec, k, lynx.SearchParams{})
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				fmt.Printf("id=%d distance=%.6f metadata=%q\n", item.ID, item.Distance, item.Metadata)
			}
			fmt.Printf("query_time_ms=%.3f\n", result.QueryTimeMs)
			return nil
		},
	}
	cmd.Flags().StringVar(&vecStr, "vector", "", "comma-separated float32 query vector")
	cmd.Flags().IntVar(&k, "k", 10, "number of neighbors")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openOrCreate()
			if err != nil {
				return err
			}
			s := db.Stats()
			fmt.Printf("vectors:        %d\n", s.VectorCount)
			fmt.Printf("dimension:      %d\n", s.Dimension)
			fmt.Printf("record memory:  %s\n", humanize.Bytes(uint64(s.MemoryUsageBytes)))
			fmt.Printf("index memory:   %s\n", humanize.Bytes(uint64(s.IndexMemoryBytes)))
			fmt.Printf("total inserts:  %d\n", s.TotalInserts)
			fmt.Printf("total queries:  %d\n", s.TotalQueries)
			fmt.Printf("avg query time: %.3fms\n", s.AvgQueryTimeMs)
			return nil
		},
	}
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Force a snapshot to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openOrCreate()
			if err != nil {
				return err
			}
			return db.Save()
		},
	}
}

func loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Reload the database snapshot from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := lynx.Create(buildConfig())
			if err != nil {
				return err
			}
			if err := db.Load(); err != nil {
				return err
			}
			fmt.Printf("loaded %d records\n", db.Size())
			return nil
		},
	}
}
