// Package serve provides the server subcommand: the websocket log stream,
// the channel API and Prometheus metrics.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/devlog/pkg/dlapi"
	"github.com/txn2/devlog/pkg/dlcfg"
	"github.com/txn2/devlog/pkg/dlchannels"
)

// cmdline arguments
var configPath string
var addr string
var historySize int
var heartbeat time.Duration
var stateFile string
var verbose bool

// Version is set by the main package
var Version string

func init() {
	Cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a devlog YAML configuration file.")
	Cmd.Flags().StringVar(&addr, "addr", dlcfg.DefaultAddr, "Listen address for the stream and API.")
	Cmd.Flags().IntVar(&historySize, "history-size", dlcfg.DefaultHistorySize, "Number of recent log events kept for GET /api/logs.")
	Cmd.Flags().DurationVar(&heartbeat, "heartbeat", 0, "Log a heartbeat line at this interval (e.g. 10s). Disabled when 0.")
	Cmd.Flags().StringVar(&stateFile, "state-file", "", "YAML file persisting channel flags across restarts.")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output.")
}

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the log stream and channel API",
	Long: `Run the devlog server.

Every log line the server writes is broadcast to websocket subscribers on /ws
and kept in a bounded history served by GET /api/logs. Channels come from the
configuration file; their forwarding flags are changed through
POST /api/channels/:id/forwarding and persisted to --state-file.

Endpoints:
  GET    /ws                              log event stream
  GET    /api/health                      health status
  GET    /api/logs?count=N                recent log events
  POST   /api/logs                        inject a log event
  DELETE /api/logs                        clear the history
  GET    /api/channels                    list channels
  POST   /api/channels/:id/forwarding     set forwarding
  GET    /metrics                         Prometheus metrics`,
	Example: "  devlog serve\n" +
		"  devlog serve -c devlog.yaml\n" +
		"  devlog serve --addr 0.0.0.0:8000 --heartbeat 10s -v",
	Run: runCmd,
}

// applyFlags overrides configuration values with flags set on the command line
func applyFlags(cmd *cobra.Command, conf *dlcfg.Config) {
	flags := cmd.Flags()
	if flags.Changed("addr") {
		conf.Server.Addr = addr
	}
	if flags.Changed("history-size") {
		conf.Server.HistorySize = historySize
	}
	if flags.Changed("heartbeat") {
		conf.Server.Heartbeat = dlcfg.Duration(heartbeat)
	}
	if flags.Changed("state-file") {
		conf.Server.StateFile = stateFile
	}
}

// newServer builds the channel store and the API manager from conf
func newServer(conf *dlcfg.Config) (*dlapi.Manager, *dlchannels.Store, error) {
	store, err := dlchannels.New(conf.Channels,
		dlchannels.WithStatePath(conf.Server.StateFile),
		dlchannels.WithSaveDelay(conf.Server.SaveDelay.Std()),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "channel store")
	}

	apiManager := dlapi.New(dlapi.Config{
		Addr:        conf.Server.Addr,
		Version:     Version,
		HistorySize: conf.Server.HistorySize,
		Heartbeat:   conf.Server.Heartbeat.Std(),
	}, dlapi.NewChannelStoreAdapter(store))

	return apiManager, store, nil
}

// setupSignalHandler cancels the returned context on the first signal and
// exits on the second
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		<-sigChan
		log.Infof("Shutting down... (press Ctrl+C again to force)")
		cancel()

		<-sigChan
		log.Warnf("Forced shutdown")
		os.Exit(1)
	}()
	return ctx
}

func runCmd(cmd *cobra.Command, _ []string) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	conf, err := dlcfg.Load(configPath)
	if err != nil {
		log.Fatalf("Configuration error: %s", err)
	}
	applyFlags(cmd, conf)
	if err := conf.Validate(); err != nil {
		log.Fatalf("Configuration error: %s", err)
	}

	apiManager, store, err := newServer(conf)
	if err != nil {
		log.Fatalf("Startup error: %s", err)
	}
	apiManager.InitLogHook()

	log.Infof("devlog %s serving %d channels", Version, store.Count())
	if conf.Server.StateFile != "" {
		log.Infof("Channel state file: %s", conf.Server.StateFile)
	}

	runErr := apiManager.Run(setupSignalHandler())

	if err := store.Close(); err != nil {
		log.Errorf("Failed to save channel state: %s", err)
	}
	if runErr != nil {
		log.Fatalf("Server error: %s", runErr)
	}
	log.Info("Clean exit")
}
