package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/BeatGlow/eink/header"
	"github.com/BeatGlow/eink/pixel"
)

// Report summarizes a batch run.
type Report struct {
	// Matched is the number of input files selected by the pattern.
	Matched int

	// Written are the paths of the headers written, in order.
	Written []string

	// Failures are the files that could not be converted.
	Failures []*FileError
}

// Err joins all failures, or returns nil if there were none.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, err := range r.Failures {
		errs[i] = err
	}
	return errors.Join(errs...)
}

// job is one header to produce from an icon.
type job struct {
	format pixel.Format
	name   string
	out    string
}

func (r *Report) fail(err error, path string, stage Stage) {
	var fe *FileError
	if !errors.As(err, &fe) {
		fe = &FileError{Path: path, Stage: stage, Err: err}
	}
	r.Failures = append(r.Failures, fe)
}

// Run converts every icon in cfg.Dir whose name matches cfg.Pattern.
//
// Files are visited shortest name first, then by name, so weather_2.png comes before
// weather_10.png. Every icon gets a 1-bit header weather_icon_<id>.h holding the array
// weather_<id>. Icons listed in cfg.GrayIDs also get a 4-gray header
// weather_icon_<id>_4g.h holding weather_<id>_4g.
//
// A file that fails is recorded in the report and the run continues with the next one.
// The returned error is only set when the directories are unusable or ctx is done.
func Run(ctx context.Context, cfg *Config) (*Report, error) {
	cfg = cfg.withDefaults()
	if cfg.OutDir == "" {
		cfg.OutDir = cfg.Dir
	}
	if cfg.Prefix == "" {
		cfg.Prefix = header.DefaultPrefix
	}
	log := cfg.Logger

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("convert: invalid pattern: %w", err)
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("convert: error reading input directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})

	if err = os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("convert: error creating output directory: %w", err)
	}

	report := new(Report)
	for _, name := range names {
		if err = ctx.Err(); err != nil {
			return report, err
		}

		path := filepath.Join(cfg.Dir, name)
		if !strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			continue
		}
		m := pattern.FindStringSubmatch(name)
		if m == nil {
			log.Debug("skipping file", "name", name)
			continue
		}
		report.Matched++

		id := strings.TrimSuffix(name, filepath.Ext(name))
		if len(m) > 1 {
			id = m[1]
		}

		img, err := Decode(path)
		if err != nil {
			log.Error("error reading icon", "name", name, "error", err)
			report.fail(err, path, StageDecode)
			continue
		}

		jobs := []job{
			{pixel.OneBit, "weather_" + id, "weather_icon_" + id + ".h"},
		}
		if n, err := strconv.Atoi(id); err == nil && slices.Contains(cfg.GrayIDs, n) {
			jobs = append(jobs, job{pixel.TwoBit, "weather_" + id + "_4g", "weather_icon_" + id + "_4g.h"})
		}

		for _, j := range jobs {
			icon, err := Convert(img, j.name, j.format, cfg)
			if err != nil {
				log.Error("error packing icon", "name", name, "format", j.format, "error", err)
				report.fail(err, path, StagePack)
				continue
			}
			out := filepath.Join(cfg.OutDir, j.out)
			if err = icon.Write(out, cfg.Prefix, ""); err != nil {
				log.Error("error writing header", "name", name, "error", err)
				report.fail(err, out, StageWrite)
				continue
			}
			log.Info("wrote header",
				"name", name,
				"header", j.out,
				"size", fmt.Sprintf("%dx%d", icon.Width, icon.Height),
				"bytes", len(icon.Data),
				"format", j.format)
			report.Written = append(report.Written, out)
		}
	}

	if report.Matched == 0 {
		log.Warn("no icons found", "dir", cfg.Dir, "pattern", cfg.Pattern, "error", ErrNoMatches)
	}
	log.Info("generated headers", "count", len(report.Written), "failed", len(report.Failures), "dir", cfg.OutDir)
	return report, nil
}

// File converts a single image to a header in format f and returns the path written.
//
// An empty name is derived from the file name of in, with a _4g suffix for the 4-gray
// format. An empty out writes <name>.h to cfg.OutDir, or next to in when that is unset.
func File(ctx context.Context, in, out string, f pixel.Format, name string, cfg *Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cfg = cfg.withDefaults()

	base := filepath.Base(in)
	if name == "" {
		name = header.Sanitize(strings.TrimSuffix(base, filepath.Ext(base)))
		if f == pixel.TwoBit {
			name += "_4g"
		}
	}
	if out == "" {
		dir := cfg.OutDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		out = filepath.Join(dir, name+".h")
	}

	img, err := Decode(in)
	if err != nil {
		return "", err
	}
	icon, err := Convert(img, name, f, cfg)
	if err != nil {
		return "", &FileError{Path: in, Stage: StagePack, Err: err}
	}

	if dir := filepath.Dir(out); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return "", &FileError{Path: out, Stage: StageWrite, Err: err}
		}
	}
	comment := fmt.Sprintf("%s Generated from %s", header.DefaultComment(f, icon.Width, icon.Height), base)
	if err = icon.Write(out, cfg.Prefix, comment); err != nil {
		return "", err
	}
	cfg.Logger.Info("wrote header",
		"name", base,
		"header", out,
		"size", fmt.Sprintf("%dx%d", icon.Width, icon.Height),
		"bytes", len(icon.Data),
		"format", f)
	return out, nil
}
