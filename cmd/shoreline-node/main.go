package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dgalue/Baltic-Shoreline-Monitor-V1"
	"github.com/dgalue/Baltic-Shoreline-Monitor-V1/internal/adapters/wal"
)

var errStop = errors.New("stop")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "nodes":
		err = nodesCommand(os.Args[2:])
	case "journal":
		err = journalCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("shoreline-node %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to node configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := shoreline.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := flow.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := shoreline.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good (radio=%s ambient=%s journal=%t)\n",
		*cfgPath, cfg.Radio.Kind, cfg.Sensors.Ambient, cfg.Journal.Enabled)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets, err := scrapeMetrics(resp.Body,
		"shoreline_tx_packets_total",
		"shoreline_rx_frames_total",
		"shoreline_directory_nodes",
		"shoreline_journal_size_bytes",
	)
	if err != nil {
		return err
	}

	fmt.Printf("[%s] tx=%.0f rx=%.0f nodes=%.0f journal_bytes=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets["shoreline_tx_packets_total"],
		targets["shoreline_rx_frames_total"],
		targets["shoreline_directory_nodes"],
		targets["shoreline_journal_size_bytes"],
	)
	return nil
}

// scrapeMetrics reads unlabelled samples for the given names from a text exposition.
func scrapeMetrics(r io.Reader, names ...string) (map[string]float64, error) {
	targets := make(map[string]float64, len(names))
	for _, n := range names {
		targets[n] = 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	return targets, scanner.Err()
}

func nodesCommand(args []string) error {
	fs := flag.NewFlagSet("nodes", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/api/v1/nodes", "Node directory endpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		Nodes []shoreline.Node `json:"nodes"`
		Count int              `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode nodes: %w", err)
	}
	return printNodes(os.Stdout, body.Nodes)
}

func printNodes(w io.Writer, nodes []shoreline.Node) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSHORT\tLAT\tLON\tRSSI\tSNR\tLAST SEEN")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.5f\t%.5f\t%d\t%.1f\t%s\n",
			n.ID, n.Name, n.ShortName, n.Latitude, n.Longitude,
			n.RSSI, n.SNR, n.LastSeen.Format(time.RFC3339))
	}
	return tw.Flush()
}

func journalCommand(args []string) error {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dir := fs.String("dir", "./data/journal", "Journal directory")
	from := fs.Uint64("from", 0, "First entry id to print")
	limit := fs.Int("limit", 0, "Stop after this many entries (0 prints all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	printed := 0
	err := wal.ReadDir(*dir, shoreline.JournalEntryID(*from), func(id shoreline.JournalEntryID, rec shoreline.JournalRecord) error {
		fmt.Printf("%d %s %s node=!%06x %s\n",
			id, rec.CapturedAt.Format(time.RFC3339Nano), rec.Modality, rec.NodeID, rec.Event)
		printed++
		if *limit > 0 && printed >= *limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return err
	}

	st, err := wal.StatDir(*dir)
	if err != nil {
		return err
	}
	fmt.Printf("%d entries shown, segments=%d size=%d bytes\n", printed, st.Segments, st.SizeBytes)
	return nil
}

func printUsage() {
	fmt.Printf(`Baltic Shoreline Monitor node

Usage:
  shoreline-node <command> [flags]

Commands:
  run        Start the node runtime using the provided config
  validate   Load and validate a config file without starting the runtime
  stats      Poll the Prometheus metrics endpoint and print live counters
  nodes      Print the node directory of a running node
  journal    Dump entries from a journal directory

Examples:
  shoreline-node run -config ./data/config.yaml
  shoreline-node validate -config ./data/config.yaml
  shoreline-node stats -url http://localhost:9100/metrics -interval 1s
  shoreline-node nodes -url http://localhost:9100/api/v1/nodes
  shoreline-node journal -dir ./data/journal -limit 20
`)
}
