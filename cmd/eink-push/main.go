// Command eink-push shows an image on a connected E-ink panel.
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
	"strings"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/BeatGlow/eink"
	"github.com/BeatGlow/eink/convert"
	"github.com/BeatGlow/eink/draw"
	"github.com/BeatGlow/eink/pixel"
)

func main() {
	spiFlag := flag.String("spi", "", "SPI port (default: first available)")
	speedFlag := flag.Uint("speed", uint(eink.DefaultSPIConfig.SpeedHz), "SPI speed in Hz")
	resetPinFlag := flag.String("reset", "GPIO17", "Reset GPIO pin")
	dcPinFlag := flag.String("dc", "GPIO25", "Data/Command GPIO pin (DC)")
	busyPinFlag := flag.String("busy", "GPIO24", "Busy GPIO pin")
	busyLowFlag := flag.Bool("busy-low", false, "Busy pin is active low")
	modeFlag := flag.String("mode", "full", "Update mode: full, fast or gray")
	fitFlag := flag.Bool("fit", false, "Scale the image to fit the panel")
	clearFlag := flag.Bool("clear", false, "Clear the panel first")
	barsFlag := flag.Bool("bars", false, "Show gray level bars instead of an image")
	verboseFlag := flag.Bool("v", os.Getenv("EINK_DEBUG") != "", "Verbose output")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		fatal(err)
	}
	if !*barsFlag && !*clearFlag && flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image>\n", os.Args[0])
		os.Exit(1)
	}

	var img image.Image
	if flag.NArg() > 0 && !*barsFlag {
		if img, err = convert.Decode(flag.Arg(0)); err != nil {
			fatal(err)
		}
	}

	if _, err = host.Init(); err != nil {
		fatal(err)
	}

	conn, err := eink.OpenSPI(&eink.SPIConfig{
		Port:          *spiFlag,
		SpeedHz:       uint32(*speedFlag),
		Reset:         gpioreg.ByName(*resetPinFlag),
		DC:            gpioreg.ByName(*dcPinFlag),
		Busy:          gpioreg.ByName(*busyPinFlag),
		BusyActiveLow: *busyLowFlag,
	})
	if err != nil {
		fatal(err)
	}
	log.Info("using connection", "conn", conn)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	output := eink.New(conn, &eink.Config{Logger: log})
	if err = show(ctx, output, mode, img, *fitFlag, *clearFlag, *barsFlag); err != nil {
		_ = output.Close()
		fatal(err)
	}
	if err = output.Close(); err != nil {
		fatal(err)
	}
}

func show(ctx context.Context, output *eink.Display, mode eink.Mode, img image.Image, fit, blank, bars bool) error {
	if err := output.Init(ctx, mode); err != nil {
		return err
	}
	slog.Info("using display", "display", output)

	if blank {
		if err := output.ClearScreen(ctx); err != nil {
			return err
		}
	}

	r := output.Bounds()
	switch {
	case bars:
		output.Clear()
		draw.Bars(output, r.Inset(8), pixel.White, pixel.LightGray, pixel.MidGray, pixel.Black)
	case img != nil:
		output.Clear()
		draw.Draw(output, r, draw.Frame(img, r.Size(), fit), image.Point{}, draw.Src)
	default:
		return nil
	}
	return output.Refresh(ctx)
}

func parseMode(s string) (eink.Mode, error) {
	switch strings.ToLower(s) {
	case "full":
		return eink.ModeFull, nil
	case "fast":
		return eink.ModeFast, nil
	case "gray", "4g":
		return eink.ModeGray, nil
	default:
		return eink.ModeOff, errors.New("invalid mode " + s)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "fatal: "+err.Error())
	os.Exit(1)
}
