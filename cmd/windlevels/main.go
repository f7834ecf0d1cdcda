// Command windlevels writes placeholder per-level grids from one template
// grid, each scaled by 1 + k*level, and the level manifest next to them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"windglobe/wind"
)

func main() {
	var (
		template      = flag.String("template", "", "Template grid JSON")
		outDir        = flag.String("out", "data", "Output directory")
		levelSpec     = flag.String("levels", "0-50", "Levels to write: '0-50' or '0,1,2,10'")
		scalePerLevel = flag.Float64("scale-per-level", 0, "Multiply U/V by 1 + scale-per-level*level")
	)
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if *template == "" {
		logger.Error("-template is required")
		os.Exit(2)
	}
	levels, err := parseLevels(*levelSpec)
	if err != nil {
		logger.Error("bad -levels", "err", err)
		os.Exit(2)
	}
	base, err := wind.LoadGrid(*template)
	if err != nil {
		logger.Error("failed to read template", "path", *template, "err", err)
		os.Exit(1)
	}

	if err := writeLevels(base, levels, *outDir, *scalePerLevel); err != nil {
		logger.Error("failed to write levels", "err", err)
		os.Exit(1)
	}
	logger.Info("wrote placeholder levels", "count", len(levels), "dir", *outDir)
}

func writeLevels(base *wind.Grid, levels []int, dir string, scalePerLevel float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, level := range levels {
		g := base.Scale(1 + scalePerLevel*float64(level))
		g.Meta.Level = json.RawMessage(strconv.Itoa(level))
		if err := wind.SaveGrid(filepath.Join(dir, wind.LevelFile(level)), g); err != nil {
			return fmt.Errorf("level %d: %w", level, err)
		}
	}
	return wind.WriteManifest(dir, wind.Manifest{Levels: levels})
}

// parseLevels reads "a-b" (inclusive), a comma list, or a single level.
func parseLevels(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if strings.Contains(spec, ",") {
		var levels []int
		for _, part := range strings.Split(spec, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			levels = append(levels, n)
		}
		return levels, nil
	}
	if lo, hi, ok := strings.Cut(spec, "-"); ok && lo != "" {
		a, err := strconv.Atoi(lo)
		if err != nil {
			return nil, err
		}
		b, err := strconv.Atoi(hi)
		if err != nil {
			return nil, err
		}
		if b < a {
			return nil, fmt.Errorf("empty range %q", spec)
		}
		levels := make([]int, 0, b-a+1)
		for l := a; l <= b; l++ {
			levels = append(levels, l)
		}
		return levels, nil
	}
	n, err := strconv.Atoi(spec)
	if err != nil {
		return nil, err
	}
	return []int{n}, nil
}
