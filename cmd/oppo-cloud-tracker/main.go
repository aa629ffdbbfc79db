// Package main runs the OPPO Cloud tracker: a poller that signs in to
// the vendor console through a remote browser, scrapes device
// locations and optionally publishes them to an MQTT broker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jiesou/oppo-cloud-tracker/pkg/config"
	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
	"github.com/jiesou/oppo-cloud-tracker/pkg/oppocloud"
	"github.com/jiesou/oppo-cloud-tracker/pkg/publisher"
)

const (
	version = "0.1.0"

	mqttConnectTimeout = 10 * time.Second
)

type cliOptions struct {
	configFile  string
	once        bool
	testOnly    bool
	showVersion bool
}

func main() {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("oppo-cloud-tracker v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		cancel()
		log.Printf("execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *cliOptions {
	opts := &cliOptions{}

	flag.StringVar(&opts.configFile, "config", "", "Path to YAML config file (default: ~/.oppo-cloud-tracker/config.yaml)")
	flag.BoolVar(&opts.once, "once", false, "Fetch once, print the result and exit")
	flag.BoolVar(&opts.testOnly, "test", false, "Test the remote-browser connection and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "Show version information")
	flag.Parse()

	return opts
}

func run(ctx context.Context, opts *cliOptions) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, logErr := logging.NewLogger("tracker")
	if logErr != nil {
		log.Printf("file logging unavailable: %v", logErr)
	}
	defer logger.Close()

	client, err := oppocloud.New(oppocloud.Options{
		Username:    cfg.Username,
		Password:    cfg.Password,
		EndpointURL: cfg.EndpointURL,
		KeepSession: cfg.KeepSession,
		Headless:    cfg.IsHeadless(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		// Teardown must not be canceled along with the poll loop.
		if err := client.Cleanup(context.Background()); err != nil {
			logger.Warnf("cleanup failed: %v", err)
		}
	}()

	if opts.testOnly {
		ok, err := client.TestConnection(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("connection ok: %v\n", ok)
		return nil
	}

	var pub *publisher.Publisher
	if cfg.MQTT.BrokerURL != "" {
		pub, err = publisher.New(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, logger)
		if err != nil {
			return err
		}
		if err := pub.Connect(mqttConnectTimeout); err != nil {
			return err
		}
		defer pub.Close()
	}

	if opts.once {
		return fetchOnce(ctx, client, pub, logger)
	}

	return pollLoop(ctx, cfg.ScanInterval(), client, pub, logger)
}

// pollLoop fetches on the configured interval until the context is
// canceled. Authentication failures stop the loop: the credentials (or
// a captcha) need the operator, and retrying only locks the account.
func pollLoop(ctx context.Context, interval time.Duration, client *oppocloud.Client, pub *publisher.Publisher, logger *logging.Logger) error {
	logger.Infof("polling every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := fetchOnce(ctx, client, pub, logger); err != nil {
		if errors.Is(err, oppocloud.ErrAuthentication) || errors.Is(err, context.Canceled) {
			return err
		}
		logger.Errorf("fetch failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fetchOnce(ctx, client, pub, logger); err != nil {
				if errors.Is(err, oppocloud.ErrAuthentication) {
					return err
				}
				if errors.Is(err, context.Canceled) {
					return nil
				}
				logger.Errorf("fetch failed: %v", err)
			}
		}
	}
}

func fetchOnce(ctx context.Context, client *oppocloud.Client, pub *publisher.Publisher, logger *logging.Logger) error {
	devices, err := client.FetchDevices(ctx)
	if err != nil {
		return err
	}

	logger.Infof("fetched %d devices", len(devices))
	for _, d := range devices {
		line, err := json.Marshal(d)
		if err != nil {
			logger.Warnf("marshal device %q: %v", d.Model, err)
			continue
		}
		fmt.Println(string(line))
	}

	if pub != nil {
		if err := pub.Publish(devices); err != nil {
			logger.Errorf("publish failed: %v", err)
		}
	}
	return nil
}
