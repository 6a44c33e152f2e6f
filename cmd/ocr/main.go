// Command ocr runs the Document AI adapter against a single local file and
// prints the extracted text.
//
// The processor triple must be configured via GOOGLE_OCR_PROJECT_ID,
// GOOGLE_OCR_LOCATION, and GOOGLE_OCR_PROCESSOR_ID (or the ocr section of the
// config file), with ambient Google credentials available to the process.
//
// Usage:
//
//	go run ./cmd/ocr -file /shared_data/job-42.pdf
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/docuflow/ai-doc-ingestion/internal/ocr"
	"github.com/docuflow/ai-doc-ingestion/pkg/config"
	"github.com/docuflow/ai-doc-ingestion/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	filePath := flag.String("file", "", "path to the document to process")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "usage: ocr -file <path> [-config <path>]")
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	adapter, err := ocr.New(cfg.OCR)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocr configuration error: %v\n", err)
		os.Exit(1)
	}

	text, err := adapter.ExtractText(context.Background(), *filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocr failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}
