package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"bcd-backend/internal/core"

	"github.com/schollz/progressbar/v3"
)

// Offline batch scorer: classifies every row of a local CSV without going
// through the server or the job queue.

func countDataRows(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	rows := 0
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			rows++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	if rows > 0 {
		rows-- // header
	}
	return rows, nil
}

func main() {
	modelPath := flag.String("model", core.DefaultArtifactPath, "path to the pipeline artifact")
	inPath := flag.String("in", "", "input csv of samples, header must match the feature schema")
	outPath := flag.String("out", "", "output csv of scored samples")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	pipeline, err := core.LoadPipeline(*modelPath)
	if err != nil {
		log.Fatalf("Failed to load pipeline artifact: %v", err)
	}

	rows, err := countDataRows(*inPath)
	if err != nil {
		log.Fatalf("Failed to read input csv: %v", err)
	}

	in, err := os.Open(*inPath)
	if err != nil {
		log.Fatalf("Failed to open input csv: %v", err)
	}
	defer in.Close()

	out, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output csv: %v", err)
	}
	defer out.Close()

	bar := progressbar.NewOptions(rows,
		progressbar.OptionSetDescription("scoring"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	summary, err := core.ScoreCSV(pipeline, in, out, func() { _ = bar.Add(1) })
	if err != nil {
		log.Fatalf("Failed to score input csv: %v", err)
	}

	fmt.Printf("Scored %d rows (%d failed)\n", summary.TotalRows, summary.FailedRows)
	for diagnosis, count := range summary.DiagnosisCounts {
		fmt.Printf("  %s: %d\n", diagnosis, count)
	}
}
