package main

import (
	"bufio"
	"flag"
	"log/slog"
	"os"
	"strings"

	"gitlab.com/quickcontacts/contacts-api/internal/config"
	"gitlab.com/quickcontacts/contacts-api/internal/store"
)

// Usage example on the command line:
// > POSTGRES_HOST=localhost POSTGRES_USER=postgres POSTGRES_PASSWORD=secret go run main.go -file=../../scripts/database.sql
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("could not load configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(store.Options{
		PostgresDSN: cfg.PostgresDSN(),
		SQLitePath:  cfg.SQLitePath,
		Timeout:     cfg.StatementTimeout,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("no usable store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	filePtr := flag.String("file", "database.sql", "the sql file to execute")
	flag.Parse()

	readFile, err := os.Open(*filePtr) // nosemgrep
	if err != nil {
		logger.Error("could not open sql file", "file", *filePtr, "error", err)
		os.Exit(1)
	}
	defer readFile.Close()

	// Statements may span lines; a semicolon ends one.
	fileScanner := bufio.NewScanner(readFile)
	fileScanner.Split(bufio.ScanLines)
	builder := strings.Builder{}
	for fileScanner.Scan() {
		line := fileScanner.Text()
		builder.WriteString(line)
		builder.WriteString(" ")
		if strings.Contains(line, ";") {
			st.DB().MustExec(builder.String())
			builder = strings.Builder{}
		}
	}
	logger.Info("sql file executed", "file", *filePtr)
}
