package main

import (
	"prem-rta/cmd"

	log "github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Error("Failed to execute command")
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
