package main

import (
	"flag"
	"log"

	"cyberincident/core/appbootstrap"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the configuration file")
	flag.Parse()

	if err := appbootstrap.Run(*cfgPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
