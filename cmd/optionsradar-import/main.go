// One-shot tool: load an options-screener export (CSV or XLSX) into
// the configured dataset, or pull the demo feed with -demo.
//
// Usage:
//
//	go run cmd/optionsradar-import/main.go [-replace] [-demo] [file]
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"optionsradar/internal/app"
	"optionsradar/internal/config"
	"optionsradar/internal/demo"
	"optionsradar/internal/domain"
	"optionsradar/internal/parse"
	"optionsradar/internal/store"
	"optionsradar/internal/util"
)

func main() {
	replace := flag.Bool("replace", false, "replace the stored dataset instead of merging")
	fromDemo := flag.Bool("demo", false, "fetch records from the configured demo URL")
	flag.Parse()

	cfgPath := "config/optionsradar.yaml"
	if p := os.Getenv("OPTIONSRADAR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	var records []domain.Record
	switch {
	case *fromDemo:
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Demo.TimeoutSecs)*time.Second)
		defer cancel()
		records, err = demo.Fetch(ctx, http.DefaultClient, cfg.Demo.URL)
		if err != nil {
			log.Fatalf("fetching demo data: %v", err)
		}
	case flag.NArg() == 1:
		records, err = parse.File(flag.Arg(0))
		if err != nil {
			log.Fatalf("parsing %s: %v", flag.Arg(0), err)
		}
	default:
		log.Fatalf("usage: optionsradar-import [-replace] [-demo] [file]")
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}
	slots, err := store.NewSQLiteSlots(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening slot store: %v", err)
	}
	defer slots.Close()

	a := app.New(slots, store.NewArchive(cfg.Storage.DataDir), logger)

	if *replace {
		a.ReplaceDataset(records)
		logger.Info("dataset replaced", "records", len(records))
	} else {
		total := a.MergeUpload(records)
		logger.Info("dataset merged", "imported", len(records), "total", total)
	}
}
