// sdfsnap renders a JSON scene file with the software host and writes the frame to a PNG.
//
// Usage:
//
//	sdfsnap [options] -scene scene.json
//
// Options:
//
//	-scene <path>     scene file to render (required)
//	-out <path>       PNG output path - default: snap.png
//	-exr <path>       also write the linear frame as an OpenEXR file
//	-width <px>       image width - default: 640
//	-height <px>      image height - default: 360
//	-workers <n>      software rasterizer goroutines - default: 4
//	-bounds           draw every layer's bounding sphere over the frame
//	-pick <x,y>       print the scene hits under a pixel
//	-strict           reject unknown fields in the scene file
//	-v                verbose output
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-sdf/common"
	"github.com/Carmen-Shannon/oxy-sdf/engine/loader"
	"github.com/Carmen-Shannon/oxy-sdf/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sdf/engine/scene"
	"github.com/gogpu/gg"
	"github.com/mrjoshuak/go-openexr/exr"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "sdfsnap: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	scene   string
	out     string
	exr     string
	width   int
	height  int
	workers int
	bounds  bool
	pick    string
	strict  bool
	verbose bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("sdfsnap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.scene, "scene", "", "scene file to render (required)")
	fs.StringVar(&o.out, "out", "snap.png", "PNG output path")
	fs.StringVar(&o.exr, "exr", "", "also write the linear frame as an OpenEXR file")
	fs.IntVar(&o.width, "width", 640, "image width")
	fs.IntVar(&o.height, "height", 360, "image height")
	fs.IntVar(&o.workers, "workers", 4, "software rasterizer goroutines")
	fs.BoolVar(&o.bounds, "bounds", false, "draw every layer's bounding sphere over the frame")
	fs.StringVar(&o.pick, "pick", "", "print the scene hits under pixel x,y")
	fs.BoolVar(&o.strict, "strict", false, "reject unknown fields in the scene file")
	fs.BoolVar(&o.verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.scene == "" {
		fs.Usage()
		return o, errors.New("-scene is required")
	}
	if o.width <= 0 || o.height <= 0 {
		return o, fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.verbose {
		common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer common.SetLogger(nil)
	}

	s, err := loader.NewLoader(loader.BackendTypeJSON, loader.WithStrict(o.strict)).Load(o.scene)
	if err != nil {
		return err
	}
	defer s.Dispose()
	s.Camera().SetAspect(float32(o.width) / float32(o.height))

	host := renderer.NewSoftwareHost(o.width, o.height, renderer.WithWorkers(o.workers))
	defer host.Release()

	if err := host.BeginFrame(); err != nil {
		return err
	}
	err = s.Render(context.Background(), host)
	host.EndFrame()
	if err != nil {
		return err
	}

	if o.pick != "" {
		if err := printHits(stdout, s, o.pick, o.width, o.height); err != nil {
			return err
		}
	}

	if o.exr != "" {
		if err := writeEXR(o.exr, host.Screen()); err != nil {
			return fmt.Errorf("write %s: %w", o.exr, err)
		}
	}

	dc := gg.NewContextForImage(host.Screen().Image())
	defer dc.Close()
	if o.bounds {
		n, err := drawBounds(dc, s)
		if err != nil {
			return err
		}
		common.Logger().Debug("sdfsnap: bounds overlay", "spheres", n)
	}
	if err := dc.SavePNG(o.out); err != nil {
		return fmt.Errorf("write %s: %w", o.out, err)
	}
	if o.verbose {
		fmt.Fprintf(stderr, "wrote %s (%dx%d, %d nodes)\n", o.out, o.width, o.height, s.Count())
	}
	return nil
}

// parsePixel parses an "x,y" pixel position.
func parsePixel(v string) (float32, float32, error) {
	xs, ys, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, fmt.Errorf("invalid pixel %q, want x,y", v)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pixel %q: %w", v, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pixel %q: %w", v, err)
	}
	return float32(x), float32(y), nil
}

func printHits(w io.Writer, s scene.Scene, pixel string, width, height int) error {
	x, y, err := parsePixel(pixel)
	if err != nil {
		return err
	}
	origin, dir := s.Camera().ScreenRay(x, y, width, height)
	hits := s.Intersect(origin, dir)
	if len(hits) == 0 {
		fmt.Fprintf(w, "pick %v,%v: no hits\n", x, y)
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(w, "pick %v,%v: node %d layer %d entity %d distance %.4f\n", x, y, h.NodeID, h.LayerID, h.EntityID, h.Distance)
	}
	return nil
}

// writeEXR stores the float color attachment without tone mapping.
func writeEXR(path string, t renderer.SoftwareTarget) error {
	w, h := t.Size()
	img := exr.NewRGBAImage(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c, _ := t.At(x, y)
			img.SetRGBA(x, y, c[0], c[1], c[2], c[3])
		}
	}
	return exr.EncodeFile(path, img)
}
