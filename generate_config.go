//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"gitlab.com/yelinaung/priceconverter/internal/config"
	"gopkg.in/ini.v1"
)

// Writes priceconverter.ini.example holding every key at its default.
func main() {
	file := ini.Empty()
	section := file.Section("")
	defaults := config.Defaults()
	for _, key := range config.Keys() {
		if _, err := section.NewKey(key, defaults[key]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if err := file.SaveTo(config.FileName + ".example"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Config written to " + config.FileName + ".example")
}
