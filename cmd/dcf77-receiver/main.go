// Command dcf77-receiver decodes the DCF77 time signal from a GPIO line,
// feeds a reference clock telegram to a serial port and publishes the
// decoded minutes to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"github.com/womat/debug"

	"github.com/sweeney/dcf77-receiver/internal/config"
	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/gpio"
	"github.com/sweeney/dcf77-receiver/internal/metrics"
	"github.com/sweeney/dcf77-receiver/internal/mqtt"
	"github.com/sweeney/dcf77-receiver/internal/serial"
	"github.com/sweeney/dcf77-receiver/internal/status"
	"github.com/sweeney/dcf77-receiver/internal/telegram"
	"github.com/sweeney/dcf77-receiver/internal/web"
)

const appName = "dcf77-receiver"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// networkEnvFile is written by pi-helper with the current network state.
const networkEnvFile = "/run/pi-helper.env"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	var (
		configFile string
		logLevel   string
		printLevel bool
	)

	cliApp := &cli.App{
		Name:    appName,
		Usage:   "DCF77 time signal decoder",
		Version: version,
		Description: "Decode the DCF77 long wave time signal from a receiver module on a GPIO line," +
			"\n write a Meinberg or Hopf telegram to a serial port once per second" +
			"\n and publish every decoded minute to MQTT.",
		UsageText: appName + " [--config <file>] [--log standard|error|debug|trace]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the receiver with the configuration file dcf77.yaml" +
			"\n\t\t" + appName + " --config /etc/dcf77-receiver/dcf77.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &configFile, Value: config.DefaultFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &logLevel, Usage: "`LEVEL` overrides the configured log level (standard|error|debug|trace)"},
			&cli.BoolFlag{Name: "print-level", Destination: &printLevel, Usage: "print the current receiver line level and exit"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(configFile, !c.IsSet("config"))
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logFile, err := cfg.Log.OpenLog()
			if err != nil {
				return err
			}
			flag, _ := config.LogFlag(cfg.Log.Level)
			debug.SetDebug(logFile, flag)
			defer func() { _ = logFile.Close() }()

			if printLevel {
				return printLineLevel(cfg)
			}
			return run(cfg)
		},
	}

	sort.Sort(cli.FlagsByName(cliApp.Flags))

	if err := cliApp.Run(os.Args); err != nil {
		debug.FatalLog.Print(err)
		return
	}
	exitCode = 0
}

func printLineLevel(cfg config.Config) error {
	line, err := gpio.NewRealLine(cfg.LineConfig())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer line.Close()

	level, err := line.Level()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Printf("%s line %d: %s\n", cfg.GPIO.Chip, cfg.GPIO.Line, levelString(level))
	return nil
}

func run(cfg config.Config) error {
	line, err := gpio.NewRealLine(cfg.LineConfig())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := line.Close(); err != nil {
			debug.ErrorLog.Printf("close gpio: %v", err)
		}
	}()

	format, err := telegram.ParseFormat(cfg.Serial.Format)
	if err != nil {
		return err
	}

	dec := dcf77.NewContext()
	d := &daemon{
		dec:      dec,
		consumer: dcf77.NewConsumer(),
		line:     line,
		format:   format,
		metrics:  metrics.New(),
		now:      time.Now,
		network:  func() *status.NetworkInfo { return readNetworkInfo(networkEnvFile) },
	}

	if cfg.Serial.Enabled {
		port, err := serial.Open(serial.ConfigFor(cfg.Serial.Device, cfg.Serial.Baud, format))
		if err != nil {
			return fmt.Errorf("init serial: %w", err)
		}
		d.serial = serial.NewWriter(port, format)
		defer d.serial.Close()
	}

	var broker, wsBroker string
	var heartbeat time.Duration
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:         cfg.MQTT.Broker,
			ClientIDPrefix: cfg.MQTT.ClientIDPrefix,
			OutboxSize:     cfg.MQTT.OutboxSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		d.publisher = pub
		d.mqttStatus = pub
		broker = cfg.MQTT.Broker
		wsBroker = resolveWSBroker(cfg.MQTT.WSBroker, broker)
		heartbeat = cfg.MQTT.Heartbeat
	}

	serialDevice := ""
	if cfg.Serial.Enabled {
		serialDevice = cfg.Serial.Device
	}
	d.tracker = status.NewTracker(d.now(), status.Config{
		GPIOChip:     cfg.GPIO.Chip,
		GPIOLine:     cfg.GPIO.Line,
		Edge:         cfg.GPIO.Edge,
		SerialDevice: serialDevice,
		Format:       string(format),
		HeartbeatMs:  heartbeat.Milliseconds(),
		Broker:       broker,
		HTTPAddr:     cfg.HTTP.Addr,
		WSBroker:     wsBroker,
	})
	if net := d.network(); net != nil {
		d.tracker.SetNetwork(net)
	}

	d.publishSystem("STARTUP", "")

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, d.tracker, dec, d.metrics.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				debug.ErrorLog.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		debug.InfoLog.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	debug.InfoLog.Printf("started %s %s: gpio=%s/%d edge=%s serial=%q format=%s broker=%q heartbeat=%v",
		appName, version, cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.Edge, serialDevice, format, broker, heartbeat)

	ticks := newPhasedTicker(dcf77.TickInterval)
	defer ticks.Stop()

	var hbC <-chan time.Time
	if heartbeat > 0 {
		hb := time.NewTicker(heartbeat)
		defer hb.Stop()
		hbC = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	poll := time.NewTicker(cfg.Consumer.Poll)
	defer poll.Stop()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.runConsumer(poll.C, done)
	}()

	err = d.runLoop(ticks, sigCh, hbC)
	close(done)
	wg.Wait()
	return err
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// readNetworkInfo reads the pi-helper env file, falling back to the
// process environment when the file does not exist.
func readNetworkInfo(path string) *status.NetworkInfo {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			debug.DebugLog.Printf("read %s: %v", path, err)
		}
		env = map[string]string{
			envNetworkType:       os.Getenv(envNetworkType),
			envNetworkIP:         os.Getenv(envNetworkIP),
			envNetworkStatus:     os.Getenv(envNetworkStatus),
			envNetworkGateway:    os.Getenv(envNetworkGateway),
			envNetworkWifiStatus: os.Getenv(envNetworkWifiStatus),
			envNetworkWifiSSID:   os.Getenv(envNetworkWifiSSID),
		}
	}
	s := env[envNetworkStatus]
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       env[envNetworkType],
		IP:         env[envNetworkIP],
		Status:     s,
		Gateway:    env[envNetworkGateway],
		WifiStatus: env[envNetworkWifiStatus],
		SSID:       env[envNetworkWifiSSID],
	}
}

func levelString(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// Empty derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		debug.ErrorLog.Printf("ws_broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
