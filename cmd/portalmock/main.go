// Command portalmock serves a mock court case-status portal for local runs.
// Usage: go run ./cmd/portalmock [port] [fixed-code]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/courtfetch/internal/logging"
	"github.com/raysh454/courtfetch/internal/portalmock"
)

func main() {
	cfg := portalmock.DefaultConfig()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}
	if len(os.Args) > 2 {
		cfg.FixedCode = os.Args[2]
	}

	fmt.Println("===========================================")
	fmt.Println("   CourtFetch Mock Portal")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Printf("Search form:  http://localhost:%d/case-status\n", cfg.Port)
	fmt.Println("Known cases:")
	for _, c := range portalmock.SampleCases() {
		fmt.Printf("  - %s %s/%s  %s vs %s\n", c.Type, c.Number, c.Year, c.Petitioner, c.Respondent)
	}
	fmt.Println()

	server := portalmock.New(cfg, logging.NewStdoutLogger("portalmock"))
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
