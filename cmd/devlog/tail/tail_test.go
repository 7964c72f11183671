package tail

import (
	"testing"
	"time"

	"github.com/txn2/devlog/pkg/dlcfg"
)

func setFlag(t *testing.T, name, value string) {
	t.Helper()
	f := Cmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag %s not found", name)
	}
	prior := f.Value.String()
	if err := Cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("set %s: %v", name, err)
	}
	t.Cleanup(func() {
		_ = f.Value.Set(prior)
		f.Changed = false
	})
}

func TestCmd_FlagsExist(t *testing.T) {
	for _, name := range []string{"config", "url", "debug", "retry-delay", "poll-interval", "max-entries", "verbose"} {
		if Cmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected --%s flag to exist", name)
		}
	}
	if f := Cmd.Flags().Lookup("url"); f != nil && f.DefValue != dlcfg.DefaultServerURL {
		t.Errorf("Expected --url default %s, got %s", dlcfg.DefaultServerURL, f.DefValue)
	}
}

func TestApplyFlags(t *testing.T) {
	setFlag(t, "url", "http://10.0.0.5:8000")
	setFlag(t, "debug", "true")
	setFlag(t, "retry-delay", "2s")

	conf := dlcfg.Default()
	conf.Stream.MaxEntries = 42
	applyFlags(Cmd, conf)

	if conf.Stream.URL != "http://10.0.0.5:8000" {
		t.Errorf("Expected url override, got %s", conf.Stream.URL)
	}
	if !conf.Stream.Debug {
		t.Error("Expected debug on")
	}
	if conf.Stream.RetryDelay.Std() != 2*time.Second {
		t.Errorf("Expected retry delay 2s, got %v", conf.Stream.RetryDelay.Std())
	}
	if conf.Stream.MaxEntries != 42 {
		t.Errorf("Unset flag overrode max entries: %d", conf.Stream.MaxEntries)
	}
}

func TestOptions(t *testing.T) {
	Version = "1.2.3"
	t.Cleanup(func() { Version = "" })

	conf := dlcfg.Default()
	conf.Stream.Debug = true
	opts := options(conf)

	if opts.Version != "1.2.3" {
		t.Errorf("Expected version 1.2.3, got %s", opts.Version)
	}
	if opts.ServerURL != dlcfg.DefaultServerURL {
		t.Errorf("Expected server URL %s, got %s", dlcfg.DefaultServerURL, opts.ServerURL)
	}
	if opts.Channels == nil {
		t.Error("Expected a channel source")
	}
	if opts.RetryDelay != dlcfg.DefaultRetryDelay {
		t.Errorf("Expected retry delay %v, got %v", dlcfg.DefaultRetryDelay, opts.RetryDelay)
	}
	if opts.PollInterval != dlcfg.DefaultPollInterval {
		t.Errorf("Expected poll interval %v, got %v", dlcfg.DefaultPollInterval, opts.PollInterval)
	}
	if opts.MaxEntries != dlcfg.DefaultMaxEntries {
		t.Errorf("Expected max entries %d, got %d", dlcfg.DefaultMaxEntries, opts.MaxEntries)
	}
	if !opts.Debug {
		t.Error("Expected debug on")
	}
}
