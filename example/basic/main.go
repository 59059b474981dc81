package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1"
)

// A pier node at Malmö harbour: camera switched off, acoustic polled fast,
// every frame logged with its packet id and remaining hops.
func main() {
	path := flag.String("config", "../../data/config.yaml", "node configuration")
	flag.Parse()

	flow, err := shoreline.Conf(*path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logFrame := func(msg shoreline.Message) error {
		log.Printf("%s %-10s peer=%s id=%08x hops=%d", msg.Direction, msg.Kind, msg.Peer, msg.Packet.ID, msg.Packet.HopLimit)
		return nil
	}

	err = flow.
		As(0x5a17e0, "Baltic-Malmo-Pier").
		At(55.6150, 12.9870).
		Sense(
			shoreline.Without(shoreline.ModalityVisual),
			shoreline.Every(shoreline.ModalityAcoustic, 200*time.Millisecond),
			shoreline.Every(shoreline.ModalityAmbient, 30*time.Second),
		).
		Report(shoreline.ToCallback("frames", logFrame)).
		Run(ctx)
	if err != nil && err != context.Canceled {
		log.Fatalf("pier node stopped: %v", err)
	}
}
