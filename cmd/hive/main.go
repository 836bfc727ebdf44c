// Command hive boots a single node of the hive, either as a Queen
// (election participant, registry owner, task dispatcher) or a Drone
// (task executor), depending on the --queen flag.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"hive/dispatch"
	"hive/drone"
	"hive/liveness"
	"hive/node"
	"hive/peer"
	"hive/raft"
	"hive/registry"
	"hive/selfaddr"
)

func main() {
	var (
		isQueen    = flag.Bool("queen", false, "run as a Queen; otherwise runs as a Drone")
		queenHost  = flag.String("queen-host", "", "Drone mode: the Queen to register with (host:port)")
		queenList  = flag.StringArray("queen-list", nil, "Queen mode: the full peer roster (host:port, repeatable)")
		ifaceName  = flag.String("interface", "", "network interface whose IPv4 address identifies this node")
		port       = flag.Int("port", 8080, "listening port")
		verbose    = flag.Bool("verbose", false, "enable debug-level logging")
	)
	flag.Parse()

	log := newLogger(*verbose)

	if *ifaceName == "" {
		log.Fatal("--interface is required")
	}
	self, err := selfaddr.Resolve(*ifaceName, *port)
	if err != nil {
		log.WithError(err).Fatal("failed to resolve self address")
	}

	client := peer.New(peer.DefaultTimeout, log.WithField("component", "peer"))

	var n *node.Node
	if *isQueen {
		// Values that follow --queen-list ("--queen-list h:p h:p") are
		// left by pflag as positional arguments; they belong to the roster.
		peers := append(append([]string{}, *queenList...), flag.Args()...)
		if len(peers) == 0 {
			log.Fatal("--queen-list is required in queen mode")
		}
		n = bootstrapQueen(self, peers, client, log)
	} else {
		if *queenHost == "" {
			log.Fatal("--queen-host is required in drone mode")
		}
		n = bootstrapDrone(self, *queenHost, client, log)
	}

	n.Start()
	defer n.Shutdown()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: n.Router(),
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("hive: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("hive: server failed")
		}
	}()
	n.MarkServing()

	waitForShutdownSignal()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("hive: shut down cleanly")
}

func bootstrapQueen(self string, peers []string, client *peer.Client, log *logrus.Logger) *node.Node {
	reg := registry.New()
	engine := raft.New(raft.Config{
		Self:   self,
		Peers:  peers,
		Client: client,
		Log:    raft.NewLogger(log.WithField("component", "raft")),
	})
	mon := liveness.New(reg, client, engine, log.WithField("component", "liveness"))
	dsp := dispatch.New(reg, client, log.WithField("component", "dispatch"))

	return node.New(node.Config{
		Role:       node.RoleQueen,
		Self:       self,
		Client:     client,
		Log:        log,
		Registry:   reg,
		Engine:     engine,
		Liveness:   mon,
		Dispatcher: dsp,
	})
}

func bootstrapDrone(self, queenHost string, client *peer.Client, log *logrus.Logger) *node.Node {
	svc := drone.New(self, nil, log.WithField("component", "drone"))

	n := node.New(node.Config{
		Role:         node.RoleDrone,
		Self:         self,
		Client:       client,
		Log:          log,
		DroneService: svc,
	})

	go drone.RegisterWithQueen(client, queenHost, self, n.MarkDroneRegistered, log.WithField("component", "bootstrap"))

	return n
}

func newLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
