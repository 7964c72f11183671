// Package tail provides the terminal client subcommand: the channel panel
// and, in debug mode, the developer log streamed from a devlog server.
package tail

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/txn2/devlog/pkg/dlcfg"
	"github.com/txn2/devlog/pkg/dlclient"
	"github.com/txn2/devlog/pkg/dltui"
	"github.com/txn2/devlog/pkg/dltui/styles"
)

// cmdline arguments
var configPath string
var serverURL string
var debug bool
var retryDelay time.Duration
var pollInterval time.Duration
var maxEntries int
var verbose bool

// Version is set by the main package
var Version string

func init() {
	Cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a devlog YAML configuration file.")
	Cmd.Flags().StringVarP(&serverURL, "url", "u", dlcfg.DefaultServerURL, "devlog server URL. The stream endpoint is derived from it.")
	Cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Start in debug mode with the developer log visible.")
	Cmd.Flags().DurationVar(&retryDelay, "retry-delay", dlcfg.DefaultRetryDelay, "Delay between stream reconnect attempts.")
	Cmd.Flags().DurationVar(&pollInterval, "poll-interval", dlcfg.DefaultPollInterval, "How often the debug flag is re-checked.")
	Cmd.Flags().IntVar(&maxEntries, "max-entries", dlcfg.DefaultMaxEntries, "Maximum entries kept in the developer log.")
	Cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output.")
}

var Cmd = &cobra.Command{
	Use:   "tail",
	Short: "Open the terminal client",
	Long: `Open the devlog terminal client.

The client lists the server's channels and toggles their forwarding flag.
In debug mode it also shows the developer log, fed by the server's websocket
stream. The stream reconnects automatically when the server goes away.

Keys:
  space/enter  toggle forwarding     d  toggle debug mode
  tab          switch panel          a  toggle auto-scroll
  x            clear the log         z  collapse the log
  r            reload channels       ?  help`,
	Example: "  devlog tail\n" +
		"  devlog tail --debug\n" +
		"  devlog tail -u http://10.0.0.5:8000 --retry-delay 2s",
	Run: runCmd,
}

// applyFlags overrides configuration values with flags set on the command line
func applyFlags(cmd *cobra.Command, conf *dlcfg.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		conf.Stream.URL = serverURL
	}
	if flags.Changed("debug") {
		conf.Stream.Debug = debug
	}
	if flags.Changed("retry-delay") {
		conf.Stream.RetryDelay = dlcfg.Duration(retryDelay)
	}
	if flags.Changed("poll-interval") {
		conf.Stream.PollInterval = dlcfg.Duration(pollInterval)
	}
	if flags.Changed("max-entries") {
		conf.Stream.MaxEntries = maxEntries
	}
}

// options maps the stream configuration to TUI options
func options(conf *dlcfg.Config) dltui.Options {
	return dltui.Options{
		Version:      Version,
		ServerURL:    conf.Stream.URL,
		Channels:     dlclient.NewHTTPClient(conf.Stream.URL),
		RetryDelay:   conf.Stream.RetryDelay.Std(),
		PollInterval: conf.Stream.PollInterval.Std(),
		MaxEntries:   conf.Stream.MaxEntries,
		Debug:        conf.Stream.Debug,
	}
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

	// Palette must be chosen before the table styles are built
	styles.SetDarkTheme(termenv.HasDarkBackground())

	manager, err := dltui.New(options(conf))
	if err != nil {
		log.Fatalf("Startup error: %s", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := manager.Run(ctx); err != nil {
		log.Fatalf("TUI error: %s", err)
	}
}
