// Command hivectl is the operator CLI: a thin wrapper around the Peer
// Client's HTTP/JSON codec for one-shot /submit_task and /healthz
// calls against a given Queen, for manual testing and scripting. It
// has no effect on cluster state beyond what the targeted endpoint
// already does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"hive/peer"
)

func main() {
	var (
		queen = flag.String("queen", "", "Queen address to target (host:port)")
		text  = flag.String("text", "", "task text for submit_task")
	)
	flag.Parse()

	if *queen == "" {
		fmt.Fprintln(os.Stderr, "usage: hivectl --queen host:port [submit_task|healthz] [--text ...]")
		os.Exit(2)
	}

	cmd := "healthz"
	if args := flag.Args(); len(args) > 0 {
		cmd = args[0]
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	client := peer.New(2*time.Second, log.WithField("component", "hivectl"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch cmd {
	case "submit_task":
		if *text == "" {
			fmt.Fprintln(os.Stderr, "submit_task requires --text")
			os.Exit(2)
		}
		if err := client.SubmitTask(ctx, *queen, *text); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		printJSON(map[string]string{"result": "OK"})

	case "healthz":
		status, body, err := client.Healthz(ctx, *queen)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "status: %d\n", status)
		printJSON(body)

	default:
		fmt.Fprintln(os.Stderr, "unknown command:", cmd)
		os.Exit(2)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
