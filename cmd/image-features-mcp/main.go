package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ironsheep/image-features-mcp/internal/config"
	"github.com/ironsheep/image-features-mcp/internal/detection"
	"github.com/ironsheep/image-features-mcp/internal/server"
	"github.com/ironsheep/image-features-mcp/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("image-features-mcp - MCP server for feature detection and matching")
	fmt.Println()
	fmt.Println("Usage: image-features-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>  Load settings from a JSON file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (override the config file):")
	fmt.Printf("  %sLOG_LEVEL=debug           Enable debug logging\n", config.EnvPrefix)
	fmt.Printf("  %sMAX_IMAGE_DIMENSION=1024  Downscale larger images before detection\n", config.EnvPrefix)
	fmt.Printf("  %sPOINT_BACKEND=native      Point detector backend (%s)\n", config.EnvPrefix, strings.Join(detection.PointBackends(), ", "))
	fmt.Printf("  %sMATCH_RATIO=0.75          Nearest-neighbour ratio test, 0 disables\n", config.EnvPrefix)
	fmt.Printf("  %sCROSS_CHECK=false         Keep only mutual nearest neighbours\n", config.EnvPrefix)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}

func main() {
	var configPath string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("image-features-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			usage()
			return
		case arg == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q\n", arg)
			usage()
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	logger := log.Default()

	cfg, err := config.Load(configPath, os.Environ())
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if cfg.Logging.Level == config.LevelDebug {
		log.Printf("Image Features MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("[DEBUG] point backend %s, max features %d, max image dimension %d",
			cfg.Points.Backend, cfg.Points.MaxFeatures, cfg.MaxImageDimension)
	}

	engine, err := session.NewEngine(cfg, logger)
	if err != nil {
		log.Fatalf("Engine error: %v", err)
	}

	srv := server.New(engine, logger, Version)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
