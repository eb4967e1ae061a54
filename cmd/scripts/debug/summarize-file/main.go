package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/gabriel-vasile/mimetype"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/robinjoseph08/golib/logger"
)

func main() {
	log := logger.New()
	_ = godotenv.Load()

	var opts struct {
		Provider   string        `long:"provider" env:"SUMMARIZER_PROVIDER" default:"openai" description:"OpenAI-compatible provider"`
		APIKey     string        `long:"api-key" env:"SUMMARIZER_API_KEY" description:"API key for the provider"`
		BaseURL    string        `long:"base-url" env:"SUMMARIZER_BASE_URL" description:"Override the provider's base URL"`
		Model      string        `short:"m" long:"model" env:"SUMMARIZER_MODEL" default:"gpt-4o-mini" description:"Model name"`
		MaxWords   int           `short:"w" long:"max-words" default:"25" description:"Longest summary, in words"`
		ChunkWords int           `long:"chunk-words" default:"900" description:"Words sent to the model per call"`
		MaxDepth   int           `long:"max-depth" default:"3" description:"Recursion ceiling"`
		Timeout    time.Duration `short:"t" long:"timeout" default:"60s" description:"Give up after this long"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/summarize-file [options] <path/to/file>")
		os.Exit(1)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		log.Err(err).Fatal("read file error")
	}
	mimeType := mimetype.Detect(data).String()
	entry := &models.FileEntry{
		ID:       path,
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     int64(len(data)),
	}
	fileType := summarizer.Classify(entry.Name, mimeType)

	fmt.Printf("Mime Type: %s\nFile Type: %s\nFingerprint: %s\nMetadata Summary: %s\n",
		mimeType, fileType, entry.Fingerprint(), summarizer.SummarizeMetadata(entry))

	if !summarizer.IsContentSummarizable(fileType) {
		return
	}

	text, err := summarizer.ExtractText(data, mimeType)
	if err != nil {
		log.Err(err).Fatal("text extraction error")
	}
	fmt.Printf("Words: %d\n", summarizer.CountWords(text))

	backend, err := summarizer.NewOpenAIBackend(summarizer.OpenAIConfig{
		Provider: opts.Provider,
		APIKey:   opts.APIKey,
		BaseURL:  opts.BaseURL,
		Model:    opts.Model,
	})
	if err != nil {
		log.Err(err).Fatal("summarizer backend error")
	}

	r := summarizer.NewRecursive(backend)
	r.MaxWords = opts.MaxWords
	r.ChunkWords = opts.ChunkWords
	r.MaxDepth = opts.MaxDepth

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	start := time.Now()
	summary, err := r.Summarize(ctx, text)
	if err != nil {
		log.Err(err).Fatal("summarize error")
	}
	fmt.Printf("Summary (%s): %s\n", time.Since(start).Round(time.Millisecond), summary)
}
