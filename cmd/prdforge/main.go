// prdforge: Product Requirements Document MCP server
//
// An MCP server that plugs into any AI tool speaking the protocol
// (Claude Code, Cursor, VS Code Copilot, Gemini CLI) and turns
// structured product input into complete, validated PRDs.
//
// Usage:
//
//	prdforge serve     # Start MCP server (stdio transport)
//	prdforge update    # Update to the latest version
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	prdserver "github.com/prdforge/prdforge/internal/server"
	"github.com/prdforge/prdforge/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("prdforge v%s\n", prdserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// Best-effort: API keys and provider settings can live in a .env
	// file next to the binary instead of the host's MCP config.
	_ = godotenv.Load()

	s, cleanup, err := prdserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Background version check — prints to stderr so it doesn't
	// interfere with MCP's stdio transport on stdout.
	go checkForUpdates()

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Network failures are silently
// ignored.
func checkForUpdates() {
	result := updater.CheckVersion(prdserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s → v%s\n"+
				"  Run: prdforge update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(prdserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s → v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(prdserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\nYou can download manually from:\n%s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s!\n", result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Restart prdforge to use the new version.\n")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `prdforge v%s — Product Requirements Document MCP Server

Usage:
  prdforge serve     Start the MCP server (stdio transport)
  prdforge update    Update to the latest version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "prdforge": {
        "command": "prdforge",
        "args": ["serve"],
        "env": {
          "OPENAI_API_KEY": "sk-..."
        }
      }
    }
  }

  Without API keys, PRDs are generated by deterministic template
  rendering. Set OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY
  or LOCAL_MODEL_API_URL to enable AI-backed generation.

Learn more: https://github.com/prdforge/prdforge
`, prdserver.Version)
}
