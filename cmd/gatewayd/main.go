// Command gatewayd runs the order gateway daemon.
package main

import (
	"log"

	"github.com/rishav/order-gateway/cmd/gatewayd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
