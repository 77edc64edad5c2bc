// miniapp: host for the shake-detection Telegram Mini App
// Serves the web-view page and runs a shake detector per open web-view
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-miniapp/internal/config"
	"github.com/teslashibe/go-miniapp/internal/httpc"
	"github.com/teslashibe/go-miniapp/internal/log"
	"github.com/teslashibe/go-miniapp/pkg/debuglog"
	"github.com/teslashibe/go-miniapp/pkg/gesture"
	"github.com/teslashibe/go-miniapp/pkg/hub"
	"github.com/teslashibe/go-miniapp/pkg/mqttbridge"
	"github.com/teslashibe/go-miniapp/pkg/session"
	"github.com/teslashibe/go-miniapp/pkg/telegram"
	"github.com/teslashibe/go-miniapp/pkg/web"
)

var (
	version    = "1.0.0"
	configPath = flag.String("config", "", "Config file (.toml, .json, .yaml)")
	port       = flag.String("port", "", "HTTP server port (overrides config)")
	preset     = flag.String("preset", "", "Default sensitivity preset: low, medium, high, very_high")
	debug      = flag.Bool("debug", false, "Enable debug logging and request logs")
	watch      = flag.Bool("watch", true, "Reload the config file when it changes")
	checkToken = flag.Bool("check-token", true, "Verify the bot token with the Bot API at startup")
)

func main() {
	flag.Parse()

	loader := config.NewLoader(*configPath, nil)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	if *debug {
		cfg.Log.Level = "debug"
		cfg.Server.RequestLogger = true
	}
	log.Init(cfg.Log.Level)

	// Host logs also go to the in-page log viewer
	logHub := hub.New("logs", log.L())
	logs := debuglog.NewBuffer(cfg.Log.BufferSize, logHub)
	log.Attach(debuglog.NewHandler(logs, log.ParseLevel(cfg.Log.Level)))

	log.Info("starting go-miniapp", "version", version, "preset", cfg.Shake.Preset)
	if cfg.Telegram.BotToken == "" {
		log.Warn("no bot token configured, users will be shown unverified")
	} else if *checkToken {
		verifyToken(cfg.Telegram.BotToken)
	}

	opts := []session.Option{
		session.WithLogger(log.L()),
		session.WithLogBuffer(logs),
	}

	var bridge *mqttbridge.Bridge
	if cfg.MQTT.Broker != "" {
		bridge = mqttbridge.New(mqttbridge.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, log.L())
		if err := bridge.Start(); err != nil {
			log.Error("mqtt bridge disabled", "error", err)
			bridge = nil
		} else {
			opts = append(opts, session.WithPublisher(bridge))
		}
	}

	sessions, err := session.NewManager(settingsFrom(cfg), opts...)
	if err != nil {
		log.Error("session manager", "error", err)
		os.Exit(1)
	}

	if *watch && *configPath != "" {
		loader.OnChange(func(next *config.Config) {
			applyFlags(next)
			sessions.SetSettings(settingsFrom(next))
		})
		if err := loader.Watch(); err != nil {
			log.Warn("config watch disabled", "error", err)
		}
	}
	defer loader.Close()

	var headless *gesture.Detector
	if bridge != nil && cfg.MQTT.MotionTopic != "" {
		headless = startHeadless(cfg, bridge)
	}

	server := web.NewServer(web.Options{
		Addr:          cfg.Addr(),
		StaticDir:     cfg.Server.StaticDir,
		RequestLogger: cfg.Server.RequestLogger,
		Logger:        log.L(),
	}, sessions, logs, logHub)

	log.Info("endpoints",
		"page", "http://localhost:"+cfg.Server.Port+"/",
		"websocket", "ws://localhost:"+cfg.Server.Port+"/ws/miniapp",
		"logs", "ws://localhost:"+cfg.Server.Port+"/ws/logs",
	)
	server.StartAsync()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if headless != nil {
		headless.Stop()
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if bridge != nil {
		bridge.Stop()
	}
	log.Info("goodbye")
}

func verifyToken(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bot, err := (&telegram.BotClient{Token: token, HTTP: httpc.Client}).GetMe(ctx)
	if err != nil {
		log.Warn("bot token check failed", "error", err)
		return
	}
	log.Info("bot token verified", "bot", "@"+bot.Username)
}

func applyFlags(cfg *config.Config) {
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *preset != "" {
		cfg.Shake.Preset = *preset
	}
}

func settingsFrom(cfg *config.Config) session.Settings {
	snapshot := cfg.Clone()
	return session.Settings{
		BotToken:        snapshot.Telegram.BotToken,
		AllowUnverified: snapshot.Telegram.AllowUnverified,
		InitDataMaxAge:  snapshot.InitDataMaxAge(),
		Detector:        snapshot.Detector,
	}
}

// startHeadless runs one detector on motion samples published to MQTT by a
// device without a web-view.
func startHeadless(cfg *config.Config, bridge *mqttbridge.Bridge) *gesture.Detector {
	name, detCfg := cfg.Detector("")
	logger := log.With("session", "headless", "topic", cfg.MQTT.MotionTopic)

	det, err := gesture.New(detCfg, bridge.Source(cfg.MQTT.MotionTopic), gesture.WithLogger(logger))
	if err != nil {
		logger.Error("headless detector", "error", err)
		return nil
	}
	det.OnShake(func(ev gesture.ShakeEvent) {
		if err := bridge.PublishShake("headless", ev); err != nil {
			logger.Warn("publish shake failed", "error", err)
		}
	})
	// Subscriptions are lost with the connection; start again once paho has
	// reconnected.
	bridge.OnConnected(func() {
		if det.State() != gesture.StateError {
			return
		}
		if _, err := det.Start(); err != nil {
			logger.Warn("headless detector restart failed", "error", err)
		} else {
			logger.Info("headless detector resumed")
		}
	})
	if _, err := det.Start(); err != nil {
		logger.Error("headless detector failed to start", "error", err)
	} else {
		logger.Info("headless detector running", "preset", name)
	}
	return det
}
