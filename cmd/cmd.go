// Package cmd provides the sage CLI commands.
//
// Commands:
//   - ingest: add a file, directory tree or URL to the knowledge base
//   - ask: answer a single question from the indexed corpus
//   - research: plan, research and synthesize an answer to a complex question
//   - migrate: apply pending database migrations
//
// All long-running commands install signal handling and shut down cleanly
// on SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/koopa0/sage/internal/log"
)

// Execute is the main entry point for the sage CLI.
func Execute() error {
	slog.SetDefault(log.New(log.Config{Level: logLevel()}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ingest":
		return runIngest(os.Args[2:])
	case "ask":
		return runAsk(os.Args[2:])
	case "research":
		return runResearch(os.Args[2:])
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// logLevel picks the log level from the environment. SAGE_DEBUG set to any
// non-empty value enables debug logging.
func logLevel() slog.Level {
	if os.Getenv("SAGE_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Sage - research assistant over your own documents")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sage ingest <path|url>   Add a file, directory or web page to the knowledge base")
	fmt.Println("  sage ask <question>      Answer a question from the indexed documents")
	fmt.Println("  sage research <question> Decompose, research and synthesize a complex question")
	fmt.Println("  sage migrate             Apply pending database migrations")
	fmt.Println("  sage --version           Show version information")
	fmt.Println("  sage --help              Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY           Required: Gemini API key")
	fmt.Println("  DATABASE_URL             Optional: postgres:// URL, overrides config file")
	fmt.Println("  SAGE_DEBUG               Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Configuration file: ~/.sage/config.yaml")
}
