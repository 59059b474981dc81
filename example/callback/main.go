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

	callback := func(msg shoreline.Message) error {
		fmt.Printf("%s %s peer=%s kind=%s fields=%v\n",
			msg.At.Format(time.RFC3339Nano),
			msg.Direction,
			msg.Peer,
			msg.Kind,
			msg.Fields,
		)
		return nil
	}

	if err := flow.Report(shoreline.ToCallback("stdout", callback)).Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
