package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1"
)

func main() {
	flow, err := shoreline.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, messages, closeMessages := shoreline.NewChannelSink("inbound", 32)
	defer closeMessages()

	go inboundWorker("peers", messages)

	if err := flow.Report(shoreline.ToSink(sink)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

// inboundWorker prints only what other nodes sent us.
func inboundWorker(name string, messages <-chan shoreline.Message) {
	for msg := range messages {
		if msg.Direction != "rx" {
			continue
		}
		fmt.Printf("[%s] %s from %s at %s\n", name, msg.Kind, msg.Peer, time.Now().Format(time.RFC3339))
	}
}
