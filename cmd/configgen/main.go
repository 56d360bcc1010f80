package main

import (
	"flag"
	"log"

	"github.com/danmuck/tlvwire/internal/config"
)

const defaultPath = "cmd/inspectd/config.toml"

func main() {
	preset := flag.String("preset", "default", "validation preset: default|production|development")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (preset %s)", *input, cfg.Preset)
		return
	}

	if err := config.WriteTemplate(*output, *preset, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *preset, *output)
}
