package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	imagelabeler "github.com/menta2k/image-labeler"
	"github.com/menta2k/image-labeler/internal/config"
	"github.com/menta2k/image-labeler/internal/logger"
	"github.com/menta2k/image-labeler/internal/utils"
	"github.com/menta2k/image-labeler/pkg/raster"
	"github.com/menta2k/image-labeler/pkg/render"
	"github.com/menta2k/image-labeler/pkg/types"
)

type options struct {
	configPath string
	root       string
	collection string
	index      int
	cmd        string
	outDir     string
	ext        string
	quality    int
	label      int
	subject    string
	model      string
	url        string
	logLevel   string
	save       bool
	timeout    time.Duration
}

func main() {
	var opts options

	flag.StringVar(&opts.configPath, "config", "", "YAML config file (default ~/.config/image-labeler/config.yaml if present)")
	flag.StringVar(&opts.root, "root", "", "dataset root directory (overrides config)")
	flag.StringVar(&opts.collection, "collection", "", "collection (sub-directory) to open")
	flag.IntVar(&opts.index, "index", 0, "image index within the collection")
	flag.StringVar(&opts.cmd, "cmd", "list", "command: list|show|render|suggest|export")

	flag.StringVar(&opts.outDir, "out", "out", "output directory for render")
	flag.StringVar(&opts.ext, "ext", "png", "render output format: png|jpg|webp")
	flag.IntVar(&opts.quality, "quality", 92, "render output quality (for jpg/webp)")

	flag.IntVar(&opts.label, "label", 0, "class label for suggested boxes")
	flag.StringVar(&opts.subject, "subject", "", "object the model should look for (default: dominant subject)")
	flag.StringVar(&opts.model, "model", "", "vision model name (overrides config)")
	flag.StringVar(&opts.url, "url", "", "ollama server URL (overrides config)")
	flag.BoolVar(&opts.save, "save", false, "write the label file after suggest")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "model request timeout")

	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(opts options) (*config.Config, error) {
	cfg := config.Default()
	path := opts.configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.root != "" {
		cfg.Dataset.Root = opts.root
	}
	if opts.model != "" {
		cfg.Assist.Model = opts.model
	}
	if opts.url != "" {
		cfg.Assist.URL = opts.url
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.cmd == "suggest" {
		cfg.Assist.Enabled = true
	}
	return cfg, cfg.Validate()
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer lg.Sync()

	l, err := imagelabeler.New(cfg, lg)
	if err != nil {
		return err
	}

	if opts.cmd == "list" {
		return list(l, opts.collection)
	}

	if opts.collection == "" {
		return fmt.Errorf("usage: %s -cmd %s -collection name [-index n]", filepath.Base(os.Args[0]), opts.cmd)
	}
	if err := l.SelectCollection(opts.collection); err != nil {
		return err
	}
	if err := l.Goto(opts.index); err != nil {
		return err
	}

	switch opts.cmd {
	case "show":
		return show(l)
	case "render":
		return renderOverlay(l, opts)
	case "suggest":
		return suggest(l, opts)
	case "export":
		_, err := fmt.Print(l.LabelText())
		return err
	default:
		return fmt.Errorf("unknown command: %s (use list, show, render, suggest or export)", opts.cmd)
	}
}

func list(l *imagelabeler.Labeler, only string) error {
	names, err := l.Collections()
	if err != nil {
		return err
	}
	for _, name := range names {
		if only != "" && name != only {
			continue
		}
		n, err := l.CollectionSize(name)
		if err != nil {
			fmt.Printf("%-24s error: %v\n", name, err)
			continue
		}
		fmt.Printf("%-24s %d images\n", name, n)
	}
	return nil
}

type boxReport struct {
	Display types.Rect   `json:"display"`
	Record  types.Record `json:"record"`
}

type imageReport struct {
	imagelabeler.Position
	File     imagelabeler.ImageInfo `json:"file"`
	Original types.Size             `json:"original"`
	Display  types.Size             `json:"display"`
	Scale    float64                `json:"scale"`
	Boxes    []boxReport            `json:"boxes"`
}

func show(l *imagelabeler.Labeler) error {
	info, err := l.ImageInfo()
	if err != nil {
		return err
	}

	original, display := l.Sizes()
	report := imageReport{
		Position: l.Position(),
		File:     info,
		Original: original,
		Display:  display,
		Scale:    l.ScaleFactor(),
	}

	records := l.Records()
	for i, b := range l.Boxes() {
		report.Boxes = append(report.Boxes, boxReport{Display: b.Rect, Record: records[i]})
	}

	js, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(js))
	return nil
}

func renderOverlay(l *imagelabeler.Labeler, opts options) error {
	img, err := l.Render(render.DefaultOptions())
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(opts.outDir); err != nil {
		return err
	}

	src, _ := l.CurrentPath()
	out := utils.OutputFilename(src, opts.outDir, "_boxes", strings.ToLower(opts.ext))
	if err := raster.Save(img, out, opts.quality); err != nil {
		return fmt.Errorf("failed to save overlay: %w", err)
	}
	log.Printf("wrote %s", out)
	return nil
}

func suggest(l *imagelabeler.Labeler, opts options) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	b, err := l.Suggest(ctx, opts.subject, opts.label)
	if err != nil {
		return err
	}
	log.Printf("suggested label=%d box=%dx%d@%d,%d", b.Label, b.Rect.W, b.Rect.H, b.Rect.X, b.Rect.Y)

	if opts.save {
		if err := l.Save(); err != nil {
			return err
		}
		log.Printf("saved labels for %s", l.Position().Image)
	}
	fmt.Print(l.LabelText())
	return nil
}
