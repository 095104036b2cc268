package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/GriffinCanCode/prerender"
	"github.com/GriffinCanCode/prerender/internal/config"
	"github.com/GriffinCanCode/prerender/internal/logging"
)

func main() {
	contextDir := flag.String("context", ".", "Nested build working directory")
	entry := flag.String("entry", "", "Entry module path (relative to context)")
	templatePath := flag.String("template", "", "Template file to render into")
	docURL := flag.String("url", "", "Simulated document URL")
	params := flag.String("params", "", "String argument passed to an invokable export")
	asString := flag.Bool("string", false, "Emit a module exporting the HTML as a string")
	disabled := flag.Bool("disabled", false, "Skip prerendering and pass the template through")
	output := flag.String("o", "", "Output file (default stdout)")
	configFile := flag.String("config", "", "YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Development = cfg.Logging.Development
	logger, err := logging.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	var source string
	if *templatePath != "" {
		raw, err := os.ReadFile(*templatePath)
		if err != nil {
			log.Fatalf("Failed to read template: %v", err)
		}
		source = string(raw)
	}

	r := prerender.New(prerender.Config{
		DefineName:     cfg.Pipeline.DefineName,
		GlobalName:     cfg.Pipeline.GlobalName,
		BundleName:     cfg.Pipeline.BundleName,
		StylePluginTag: cfg.Pipeline.StylePluginTag,
		DocumentURL:    cfg.Pipeline.DocumentURL,
		Logger:         logger,
	})

	opts := prerender.Options{
		String:      *asString,
		Disabled:    *disabled,
		DocumentURL: *docURL,
	}
	if *params != "" {
		opts.Params = *params
	}

	req := prerender.Request{
		ContextDir: *contextDir,
		Source:     source,
	}
	if *entry != "" {
		req.Entry = prerender.EntryPath(*entry)
	}

	html, err := r.Render(context.Background(), req, opts)
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	if *output == "" {
		os.Stdout.WriteString(html)
		return
	}
	if err := os.WriteFile(*output, []byte(html), 0o644); err != nil {
		log.Fatalf("Failed to write output: %v", err)
	}
	logger.Sugar().Infow("output written", "path", *output, "bytes", len(html))
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
