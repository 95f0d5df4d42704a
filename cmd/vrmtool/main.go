// vrmtool is a CLI utility for inspecting and decoding GLB/VRM avatar files.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/midgard-avatar/internal/assets"
	"github.com/Faultbox/midgard-avatar/internal/config"
	"github.com/Faultbox/midgard-avatar/internal/logger"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		err = cmdInfo(args)
	case "decode", "d":
		err = cmdDecode(cfg, args)
	case "textures", "tex":
		err = cmdTextures(cfg, args)
	case "dump":
		err = cmdDump(args)
	case "watch", "w":
		err = cmdWatch(cfg, args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Sync()
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`vrmtool - GLB/VRM avatar decoder

Usage:
  vrmtool [flags] <command> [options]

Commands:
  info <file.vrm>                   Show container, document and VRM metadata
  decode [-j N] <file.vrm>...       Decode and normalize, print a summary per file
  textures <file.vrm> [outdir]      Write every decodable image as PNG
  dump <file.vrm>                   Dump the parsed scene document
  watch <file.vrm>                  Re-decode whenever the file changes
  config [save [path]]              Print or save the effective config

Flags:
  -config <path>    Config file (default ./config.yaml or the user config dir)
  -debug            Debug logging
  -extent <n>       Largest model axis after normalization
  -max-size <MB>    Refuse larger files
  -out <dir>        Texture export directory
  -log-file <path>  Also log to a rotating file
  -no-cache         Disable the decoded model cache

Examples:
  vrmtool info AliciaSolid.vrm
  vrmtool -extent 1 decode a.vrm b.glb
  vrmtool textures avatar.vrm ./tex
  vrmtool -debug watch avatar.vrm`)
}

// newManager builds the model loader shared by the decoding commands.
func newManager(cfg *config.Config) *assets.Manager {
	return assets.NewManager(assets.Options{
		MaxFileSize:  cfg.MaxFileSize(),
		MaxEntries:   cfg.Cache.MaxEntries,
		TargetExtent: cfg.Decoder.TargetExtent,
		Logger:       logger.Named("decoder"),
	})
}

func cmdConfig(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	}
	if args[0] != "save" {
		return fmt.Errorf("unknown config action %q, want save", args[0])
	}

	path := config.DefaultPath()
	save := cfg.Save
	if len(args) > 1 {
		path = args[1]
		save = func() error { return cfg.SaveTo(path) }
	}
	if err := save(); err != nil {
		return err
	}
	fmt.Printf("Saved config to %s\n", path)
	return nil
}
