// emit-transfer posts one business transfer event to each listed sidecar and
// prints what every sidecar acknowledged.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"observability/internal/client"
	"observability/internal/logging"
	"observability/internal/transfer"
)

func main() {
	var (
		targets  = flag.String("targets", "http://localhost:8000", "Comma-separated sidecar base URLs")
		status   = flag.String("status", transfer.DefaultStatus, "Transfer outcome status")
		duration = flag.Float64("duration", 1.1, "Transfer duration in seconds")
		eventID  = flag.String("event-id", "", "Optional event id for duplicate suppression")
		timeout  = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		ready    = flag.Bool("ready", false, "Also call /ready on each sidecar")
	)
	flag.Parse()

	logging.Init("info", logging.FormatText)
	logger := logging.NewDefaultLogger()

	ev := transfer.Event{EventID: *eventID, Status: *status, Duration: *duration}
	failed := 0

	for _, target := range strings.Split(*targets, ",") {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		c := client.New(target, *timeout)
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		if *ready {
			if res, err := c.Ready(ctx); err != nil {
				logger.Errorf("GET %s/ready failed: %v", c.BaseURL(), err)
			} else {
				fmt.Printf("GET %s/ready -> %s (%s)\n", c.BaseURL(), res.Status, res.Participant)
			}
		}

		ack, err := c.EmitTransfer(ctx, ev)
		cancel()
		if err != nil {
			logger.Errorf("POST %s/event/transfer failed: %v", c.BaseURL(), err)
			failed++
			continue
		}
		fmt.Printf("POST %s/event/transfer -> participant=%s status=%s duration=%g duplicate=%t\n",
			c.BaseURL(), ack.Participant, ack.Status, ack.Duration, ack.Duplicate)
		fmt.Printf("  metrics: %s/metrics\n", c.BaseURL())
	}

	if failed > 0 {
		os.Exit(1)
	}
}
