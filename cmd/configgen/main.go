// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// configgen writes a commented sample configuration and a Railway deploy
// manifest. Writes are atomic so a crash never leaves a torn file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/chatrelay/internal/config"
)

const railwayManifest = `[build]
builder = "DOCKERFILE"

[deploy]
healthcheckPath = "/readyz"
healthcheckTimeout = 60
restartPolicyType = "ON_FAILURE"
restartPolicyMaxRetries = 3

[experimental]
websockets = true
`

func main() {
	outDir := flag.String("out", ".", "output directory")
	railway := flag.Bool("railway", true, "also write railway.toml")
	flag.Parse()

	cfg := config.Defaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		fail(fmt.Errorf("marshal config: %w", err))
	}

	header := []byte("# chatrelay sample configuration.\n" +
		"# Every key can be overridden via CHATRELAY_* environment variables;\n" +
		"# ENV wins over this file, this file wins over defaults.\n" +
		"# API keys (ANTHROPIC_API_KEY, OPENAI_API_KEY) are env-only.\n\n")

	cfgPath := filepath.Join(*outDir, "config.example.yaml")
	if err := renameio.WriteFile(cfgPath, append(header, data...), 0o644); err != nil {
		fail(fmt.Errorf("write %s: %w", cfgPath, err))
	}
	fmt.Println("wrote", cfgPath)

	if *railway {
		tomlPath := filepath.Join(*outDir, "railway.toml")
		if err := renameio.WriteFile(tomlPath, []byte(railwayManifest), 0o644); err != nil {
			fail(fmt.Errorf("write %s: %w", tomlPath, err))
		}
		fmt.Println("wrote", tomlPath)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
	os.Exit(1)
}
