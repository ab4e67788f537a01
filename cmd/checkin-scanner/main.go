// Package main: точка входа checkin-scanner (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/psds-microservice/checkin-scanner/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
