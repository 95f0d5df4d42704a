package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-avatar/internal/assets"
	"github.com/Faultbox/midgard-avatar/internal/config"
	"github.com/Faultbox/midgard-avatar/internal/logger"
	"github.com/Faultbox/midgard-avatar/pkg/avatar"
)

func cmdDecode(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	jobs := fs.Int("j", runtime.NumCPU(), "Decode this many files at once")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vrmtool decode [-j N] <file.vrm>...")
	}

	paths := fs.Args()
	models, errs := decodeAll(newManager(cfg), paths, *jobs)

	failed := 0
	for i, path := range paths {
		if errs[i] != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, errs[i])
			failed++
			continue
		}
		printSummary(path, models[i])
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to decode", failed, len(paths))
	}
	return nil
}

// decodeAll decodes paths with at most jobs running at once. Results and
// errors are returned in input order; one failure does not stop the rest.
func decodeAll(m *assets.Manager, paths []string, jobs int) ([]*avatar.Model, []error) {
	models := make([]*avatar.Model, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, path := range paths {
		g.Go(func() error {
			models[i], errs[i] = m.Load(path)
			if errs[i] != nil {
				logger.Error("decode failed", zap.String("path", path), zap.Error(errs[i]))
			}
			return nil
		})
	}
	g.Wait()
	return models, errs
}

func printSummary(path string, m *avatar.Model) {
	size := m.Bounds.Size()
	fmt.Printf("%s\n", path)
	fmt.Printf("  Vertices:   %d\n", m.VertexCount())
	fmt.Printf("  Triangles:  %d\n", m.TriangleCount())
	fmt.Printf("  Materials:  %d (%d draw ranges)\n", len(m.Materials), len(m.MaterialRanges()))
	fmt.Printf("  Images:     %d decoded\n", len(m.Images))
	fmt.Printf("  Size:       %.3f x %.3f x %.3f\n", size.X, size.Y, size.Z)
	fmt.Printf("  Scale:      %g\n", m.Scale)
	if m.Meta != nil {
		fmt.Printf("  VRM:        %s %q, %d bones\n", m.Meta.Extension, m.Meta.Name, len(m.Meta.HumanBones))
	}
	for _, w := range m.Warnings {
		fmt.Printf("  Warning:    %v\n", w)
	}
}

func cmdTextures(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmtool textures <file.vrm> [outdir]")
	}
	outDir := cfg.Export.TextureDir
	if len(args) > 1 {
		outDir = args[1]
	}

	model, err := newManager(cfg).Load(args[0])
	if err != nil {
		return err
	}
	written, err := writeTextures(model, outDir)
	if err != nil {
		return err
	}
	for _, w := range model.Warnings {
		if w.Image >= 0 {
			fmt.Fprintf(os.Stderr, "Skipped: %v\n", w)
		}
	}
	logger.Sugar.Debugw("textures exported", "model", args[0], "count", len(written), "dir", outDir)
	fmt.Fprintf(os.Stderr, "\nExported %d images to %s\n", len(written), outDir)
	return nil
}

// writeTextures writes every decoded image of m as a PNG in dir and returns
// the paths written.
func writeTextures(m *avatar.Model, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	var written []string
	for _, img := range m.Images {
		path := filepath.Join(dir, textureFileName(img))
		if err := writePNG(path, img); err != nil {
			return written, err
		}
		fmt.Printf("Exported: %s (%dx%d %s)\n", path, img.Width, img.Height, img.Format)
		written = append(written, path)
	}
	return written, nil
}

func writePNG(path string, img avatar.Image) error {
	nrgba := &image.NRGBA{
		Pix:    img.Pix,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, nrgba); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// textureFileName names an exported image after its document index and name.
func textureFileName(img avatar.Image) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, strings.TrimSuffix(img.Name, filepath.Ext(img.Name)))
	if name == "" {
		return fmt.Sprintf("%02d.png", img.Source)
	}
	return fmt.Sprintf("%02d_%s.png", img.Source, name)
}
