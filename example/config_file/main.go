package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/aviator-labs/flightdeck/internal/config"
)

// This example loads the sample TOML config and prints the validated
// service table without launching anything.
func main() {
	cfgPath := filepath.Join("example", "config_file", "config.toml")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}
	b, _ := json.MarshalIndent(cfg.Registry.Specs(), "", "  ")
	fmt.Println(string(b))
	fmt.Printf("python=%s settle=%s grace=%s\n", cfg.Python, cfg.Settle, cfg.Grace)
}
