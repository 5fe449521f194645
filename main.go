package main

import (
	"log"

	"ticket-wallet/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
