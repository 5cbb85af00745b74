// Command castmock runs an in-process mock Cast receiver: a TLS listener
// that answers the bring-up sequence, heartbeat, and a minimal media
// command set, for exercising cmd/castctl (or any cast.Client) without a
// physical device.
package main

import (
	"flag"
	"fmt"
	"log"

	"castclient/internal/mockdevice"
)

func main() {
	port := flag.Int("port", 8009, "TCP port to listen on (Cast devices default to 8009)")
	flag.Parse()

	ln, err := mockdevice.ListenAddr(fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		log.Fatalf("[castmock] %v", err)
	}
	defer ln.Close()

	log.Printf("[castmock] listening on %s", ln.Addr())

	for {
		peer, err := ln.Accept()
		if err != nil {
			log.Printf("[castmock] accept: %v", err)
			return
		}
		log.Printf("[castmock] accepted connection")
		go mockdevice.Serve(peer)
	}
}
