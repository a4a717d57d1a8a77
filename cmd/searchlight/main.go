package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mrisearchlight/internal/models"
	"mrisearchlight/pkg/config"
	"mrisearchlight/pkg/metrics"
	"mrisearchlight/pkg/searchlight"
	"mrisearchlight/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "searchlight.yaml", "YAML configuration file (defaults are used if missing)")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	radius := flag.Float64("radius", 0, "Run a single radius in mm instead of the configured sweep")
	numJobs := flag.Int("jobs", 0, "Number of parallel workers (0: from config, negative: all CPUs)")
	cvKind := flag.String("cv", "", "Cross-validation: kfold, stratified, logo or groupkfold (default: from config)")
	scoring := flag.String("scoring", "", "Comma-separated metric names (default: from config)")
	verbose := flag.Int("verbose", -1, "Verbosity 0-2 (default: from config)")
	seed := flag.Int64("seed", -1, "Noise seed of the synthetic dataset (default: from config)")
	csvPath := flag.String("csv", "", "Write per-voxel mean scores of every radius to this CSV file")
	listMetrics := flag.Bool("list-metrics", false, "List the available metric names and exit")
	flag.Parse()

	if *listMetrics {
		for _, name := range metrics.Names() {
			fmt.Println(name)
		}
		return
	}

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *numJobs != 0 {
		cfg.SearchLight.NumJobs = *numJobs
	}
	if *cvKind != "" {
		cfg.CV.Kind = *cvKind
	}
	if *scoring != "" {
		cfg.SearchLight.Scoring = strings.Split(*scoring, ",")
	}
	if *verbose >= 0 {
		cfg.SearchLight.Verbose = *verbose
	}
	if *seed >= 0 {
		cfg.Simulation.Seed = *seed
	}
	radii := cfg.Radii()
	if *radius > 0 {
		radii = []float64{*radius}
	}

	fmt.Println("================================")
	fmt.Println("SEARCHLIGHT DECODING ON A SYNTHETIC VOLUME")
	fmt.Println("Cross-validated classification in a sphere around every voxel")
	fmt.Println("================================")

	ds, err := models.NewSynthetic(cfg.SyntheticParams())
	if err != nil {
		log.Fatalf("Failed to generate dataset: %v", err)
	}
	zeros, ones := ds.ClassCounts()
	fmt.Printf("Dataset: %v voxels x %d samples (%d / %d per class), signal at %v\n",
		ds.Image.Shape, ds.Image.Samples, zeros, ones, ds.Params.Signal)
	fmt.Printf("Cross-validation: %s, estimator: %s, scoring: %s\n",
		cfg.CV.Kind, cfg.Estimator.Kind, strings.Join(cfg.SearchLight.Scoring, ", "))

	var groups []int
	if cfg.UsesGroups() {
		groups = ds.Groups
	}

	results := make([]radiusResult, 0, len(radii))
	startTime := time.Now()
	for _, r := range radii {
		params, err := cfg.SearchLightParams(ds.Mask, nil, r)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		params.Logger = log.New(os.Stderr, fmt.Sprintf("[r=%g] ", r), log.LstdFlags)

		fmt.Printf("\nRunning searchlight with radius %g mm...\n", r)
		sl := searchlight.New(params)
		if err := sl.Fit([]*volume.Image{ds.Image}, ds.Labels, groups); err != nil {
			log.Fatalf("Searchlight failed: %v", err)
		}
		results = append(results, radiusResult{radius: r, sl: sl})
		printSummary(sl)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nSearchlight completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Println("\nPerfectly decoded voxels per radius:")
	fmt.Println("=======================================")
	for _, res := range results {
		for _, key := range sortedKeys(res.sl.ScoreMaps()) {
			fmt.Printf("radius %-5g %-24s %d\n", res.radius, key, res.sl.ScoreMaps()[key].CountEqual(1))
		}
	}

	if *csvPath != "" {
		if err := writeCSV(*csvPath, results); err != nil {
			log.Fatalf("Failed to write CSV: %v", err)
		}
		fmt.Printf("\nPer-voxel scores saved to: %s\n", *csvPath)
	}
}

type radiusResult struct {
	radius float64
	sl     *searchlight.SearchLight
}

func printSummary(sl *searchlight.SearchLight) {
	hoods := sl.Neighborhoods()
	fmt.Printf("- %d centres scored in %.2f seconds\n", len(hoods.Centers), sl.Elapsed().Seconds())
	for _, key := range sortedKeys(sl.ScoreMaps()) {
		m := sl.ScoreMaps()[key]
		voxel, best, ok := m.Argmax()
		if !ok {
			continue
		}
		fmt.Printf("- %s: best %.3f at %v, %d voxel(s) at 1.0\n", key, best, voxel, m.CountEqual(1))
	}
}

// writeCSV writes one row per scored voxel and radius with the mean score
// of every metric.
func writeCSV(path string, results []radiusResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i, res := range results {
		keys := sortedKeys(res.sl.ScoreMaps())
		if i == 0 {
			if err := w.Write(append([]string{"radius", "x", "y", "z"}, keys...)); err != nil {
				return err
			}
		}
		for _, c := range res.sl.Neighborhoods().Centers {
			row := []string{
				strconv.FormatFloat(res.radius, 'g', -1, 64),
				strconv.Itoa(c[0]), strconv.Itoa(c[1]), strconv.Itoa(c[2]),
			}
			for _, key := range keys {
				mean := res.sl.ScoreMaps()[key].MeanAt(c[0], c[1], c[2])
				row = append(row, strconv.FormatFloat(mean, 'f', 6, 64))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func sortedKeys(m map[string]*searchlight.ScoreMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
