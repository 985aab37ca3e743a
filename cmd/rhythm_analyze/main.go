package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wearlab/circadian/pipeline"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML study config")
		inRoot       = flag.String("in", "", "Study input root (overrides config)")
		outRoot      = flag.String("out", "", "Output directory (overrides config)")
		format       = flag.String("format", "", "Clean epoch table format: parquet|csv")
		participants = flag.String("participants", "", "Comma-separated participant IDs, empty for all")
		verbose      = flag.Bool("verbose", false, "Log progress to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --config study.yaml [--participants 01,02] [--format parquet|csv]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(flag.CommandLine.Output(), "       %s --in /data/study --out /data/results\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts := pipeline.Options{ConfigPath: *configPath}
	if *configPath == "" {
		if strings.TrimSpace(*inRoot) == "" || strings.TrimSpace(*outRoot) == "" {
			flag.Usage()
			os.Exit(2)
		}
		cfg := pipeline.DefaultConfig()
		cfg.InputRoot = *inRoot
		cfg.OutputRoot = *outRoot
		opts.Config = &cfg
	}
	if *format != "" {
		if opts.Config == nil {
			cfg, err := pipeline.LoadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "rhythm_analyze failed: %v\n", err)
				os.Exit(1)
			}
			opts.Config = &cfg
			opts.ConfigPath = ""
		}
		opts.Config.Format = *format
	}
	if *participants != "" {
		for _, id := range strings.Split(*participants, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Participants = append(opts.Participants, id)
			}
		}
	}
	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "rhythm_analyze failed: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		opts.Logger = logger
	}

	result, err := pipeline.Run(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rhythm_analyze failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rhythm_analyze complete\n")
	fmt.Printf("Output dir:       %s\n", result.OutputDir)
	fmt.Printf("agreement:        %s\n", result.AgreementPath)
	fmt.Printf("cosinor models:   %s\n", result.CosinorPath)
	fmt.Printf("non-parametric:   %s\n", result.NonParametricPath)
	fmt.Printf("miss stats:       %s\n", result.MissStatsPath)
	fmt.Printf("participants:     %d processed", len(result.Participants))
	if len(result.Skipped) > 0 {
		fmt.Printf(", %d skipped (%s)", len(result.Skipped), strings.Join(result.Skipped, ", "))
	}
	fmt.Println()
}
