// Command fishdb-export renders the record tables to CSV and uploads them to
// the configured blob store. Store and blob backends are selected through the
// FISHDB_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tytell/fishdb/internal/adapters/reports"
	"github.com/tytell/fishdb/internal/blob"
	"github.com/tytell/fishdb/internal/core"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fishdb-export", flag.ContinueOnError)
	table := fs.String("table", "", "export a single table instead of all of them")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store", "error", err)
		return 1
	}
	blobs, err := blob.Open(ctx)
	if err != nil {
		logger.Error("open blob store", "error", err)
		return 1
	}

	exporter := reports.NewExporter(store, blobs)
	var artifacts []reports.Artifact
	if *table != "" {
		artifact, err := exporter.ExportTable(ctx, *table)
		if err != nil {
			logger.Error("export failed", "table", *table, "error", err)
			return 1
		}
		artifacts = append(artifacts, artifact)
	} else {
		artifacts, err = exporter.ExportAll(ctx)
		if err != nil {
			logger.Error("export failed", "error", err)
			return 1
		}
	}

	for _, artifact := range artifacts {
		logger.Debug("exported", "table", artifact.Table, "rows", artifact.Rows)
		fmt.Printf("%s\t%d rows\t%s\n", artifact.Table, artifact.Rows, artifact.Key)
	}
	return 0
}
