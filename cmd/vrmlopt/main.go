// vrmlopt reduces the vertex and face count of VRML 2.0 documents.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/vrmlopt/internal/config"
	"github.com/Faultbox/vrmlopt/internal/logger"
	vmath "github.com/Faultbox/vrmlopt/pkg/math"
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
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	vmath.SetLogger(logger.Named("math"))

	command := args[0]
	rest := args[1:]

	switch command {
	case "simplify", "s":
		err = cmdSimplify(cfg, rest)
	case "info":
		err = cmdInfo(cfg, rest)
	case "export":
		err = cmdExport(cfg, rest)
	case "batch":
		err = cmdBatch(cfg, rest)
	case "watch":
		err = cmdWatch(cfg, rest)
	case "serve":
		err = cmdServe(cfg, rest)
	case "init-config":
		err = cmdInitConfig(cfg, rest)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`vrmlopt - VRML mesh simplifier

Usage:
  vrmlopt [flags] <command> [options]

Commands:
  simplify [-o out] [-remote url] <file.wrl>
                                       Merge and simplify a document
  info <file.wrl>                      Show per-shape vertex and face counts
  export [-o out.glb] <file.wrl>       Simplify and write binary glTF
  batch [-j N] [-d dir] [-remote url] <files...>
                                       Simplify many documents in parallel;
                                       the first failure stops the rest
  watch [-d dir] <dir>                 Simplify documents as they change
  serve                                Run the websocket worker
  init-config [path]                   Write the current settings to a file

Flags:
  -config <path>      Config file (default: ~/.config/vrmlopt/vrmlopt.yaml)
  -cutoff <d>         Vertex merge cutoff distance
  -fraction <f>       Keep this fraction of merged vertices
  -strategy <name>    qem or cluster
  -neighbors <mode>   positive or full
  -fuse               Fuse all shapes into one mesh
  -charset <name>     Input charset (default: auto)
  -addr <addr>        Worker listen address
  -log-file <path>    Also write logs to this file
  -debug              Enable debug logging

Examples:
  vrmlopt -fraction 0.5 simplify -o small.wrl scan.wrl
  vrmlopt -cutoff 0.05 -strategy cluster export scan.wrl
  vrmlopt batch -j 4 -d out/ scans/*.wrl
  vrmlopt simplify -remote ws://localhost:8765/ws scan.wrl`)
}
