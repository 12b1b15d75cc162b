// Command eink-header converts images into C headers holding packed E-ink icons.
//
// Without arguments every weather_<id>.png in -dir becomes weather_icon_<id>.h, with a 4-gray
// weather_icon_<id>_4g.h next to it for the ids in -gray-ids. Use -in to convert a single
// image or -text to render a text label.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BeatGlow/eink/convert"
	"github.com/BeatGlow/eink/glyph"
	"github.com/BeatGlow/eink/header"
	"github.com/BeatGlow/eink/pixel"
)

func main() {
	dirFlag := flag.String("dir", convert.DefaultConfig.Dir, "Input directory (batch mode)")
	outFlag := flag.String("out", "", "Output directory (default: next to the input)")
	patternFlag := flag.String("pattern", convert.DefaultConfig.Pattern, "Input file pattern, the first submatch is the icon id (batch mode)")
	grayIDsFlag := flag.String("gray-ids", joinIDs(convert.DefaultConfig.GrayIDs), "Comma separated icon ids that also get a 4-gray header (batch mode)")
	inFlag := flag.String("in", "", "Convert a single image")
	textFlag := flag.String("text", "", "Render and convert a text label")
	outputFlag := flag.String("o", "", "Output header (single image and text mode)")
	formatFlag := flag.String("format", "4g", "Output format: 1bit or 4g (single image and text mode)")
	nameFlag := flag.String("name", "", "Array name (single image and text mode)")
	fontFlag := flag.String("font", "", "Built-in font name or TrueType font file (text mode)")
	sizeFlag := flag.Float64("size", glyph.DefaultSize, "Font size in points (text mode)")
	frameFlag := flag.String("frame", "", "Place images in a WxH frame")
	fitFlag := flag.Bool("fit", false, "Scale images to fit the frame")
	prefixFlag := flag.String("prefix", "", "Macro prefix (batch default: "+header.DefaultPrefix+")")
	verboseFlag := flag.Bool("v", os.Getenv("EINK_DEBUG") != "", "Verbose output")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	frame, err := parseFrame(*frameFlag)
	if err != nil {
		fatal(err)
	}
	if *fitFlag && frame.Eq(image.Point{}) {
		fatal(errors.New("-fit requires -frame"))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	config := &convert.Config{
		Dir:     *dirFlag,
		OutDir:  *outFlag,
		Pattern: *patternFlag,
		Frame:   frame,
		Fit:     *fitFlag,
		Prefix:  *prefixFlag,
		Logger:  log,
	}

	switch {
	case *inFlag != "" && *textFlag != "":
		fatal(errors.New("-in and -text are mutually exclusive"))

	case *inFlag != "":
		f, err := pixel.ParseFormat(*formatFlag)
		if err != nil {
			fatal(err)
		}
		if _, err = convert.File(ctx, *inFlag, *outputFlag, f, *nameFlag, config); err != nil {
			fatal(err)
		}

	case *textFlag != "":
		f, err := pixel.ParseFormat(*formatFlag)
		if err != nil {
			fatal(err)
		}
		if err = text(*textFlag, *fontFlag, *sizeFlag, *nameFlag, *outputFlag, f, config); err != nil {
			fatal(err)
		}

	default:
		if config.GrayIDs, err = parseIDs(*grayIDsFlag); err != nil {
			fatal(err)
		}
		report, err := convert.Run(ctx, config)
		if err != nil {
			fatal(err)
		}
		if len(report.Failures) > 0 {
			for _, failure := range report.Failures {
				fmt.Fprintln(os.Stderr, failure)
			}
			os.Exit(1)
		}
	}
}

func text(s, font string, size float64, name, out string, f pixel.Format, config *convert.Config) error {
	if name == "" {
		return errors.New("text mode requires -name")
	}

	opts := glyph.Options{Size: size, Padding: 1}
	if font != "" {
		var err error
		if opts.Font, err = glyph.Builtin(font); errors.Is(err, glyph.ErrFont) {
			if opts.Font, err = os.ReadFile(font); err != nil {
				return err
			}
		}
	}

	img, err := glyph.Render(s, opts)
	if err != nil {
		return err
	}
	icon, err := convert.Convert(img, name, f, config)
	if err != nil {
		return err
	}

	if out == "" {
		out = filepath.Join(config.OutDir, name+".h")
	}
	comment := fmt.Sprintf("%s Rendered from %q", header.DefaultComment(f, icon.Width, icon.Height), s)
	if err = icon.Write(out, config.Prefix, comment); err != nil {
		return err
	}
	config.Logger.Info("wrote header", "header", out, "size", fmt.Sprintf("%dx%d", icon.Width, icon.Height), "format", f)
	return nil
}

func parseFrame(s string) (image.Point, error) {
	if s == "" {
		return image.Point{}, nil
	}
	var p image.Point
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &p.X, &p.Y); err != nil || p.X <= 0 || p.Y <= 0 {
		return image.Point{}, fmt.Errorf("invalid frame size %q, expected WxH", s)
	}
	return p, nil
}

func parseIDs(s string) ([]int, error) {
	ids := []int{}
	for _, field := range strings.Split(s, ",") {
		if field = strings.TrimSpace(field); field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid icon id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ",")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
