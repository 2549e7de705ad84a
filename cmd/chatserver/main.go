// Command chatserver runs the chat relay. Lines typed on standard input are
// operator commands (#quit, #stop, #close, #start, #setport, #getport) or, when
// they do not start with '#', server messages broadcast to every client.
//
// Settings come from CHAT_* environment variables and can be overridden by
// flags:
//
//	chatserver -port 5555 -log-level debug
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cyberinferno/simplechat/chat"
	"github.com/cyberinferno/simplechat/config"
	"github.com/cyberinferno/simplechat/cooldown"
	"github.com/cyberinferno/simplechat/logger"
	"github.com/cyberinferno/simplechat/tcpserver"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := parseFlags(config.FromEnv())
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "chatserver: invalid configuration:\n%v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "chatserver: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(cfg config.Config) config.Config {
	flag.StringVar(&cfg.Host, "host", cfg.Host, "Interface to bind, empty for all")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "Initial listening port")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Write daily log files to this directory")
	flag.DurationVar(&cfg.KickCooldown, "kick-cooldown", cfg.KickCooldown, "Refuse kicked hosts for this long, 0 disables")
	flag.StringVar(&cfg.CooldownRedisAddr, "cooldown-redis", cfg.CooldownRedisAddr, "Redis address for a shared cooldown list")
	flag.Parse()

	return cfg
}

func run(cfg config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	tracker, closeTracker := newTracker(cfg)
	defer closeTracker()

	transport := tcpserver.NewTCPServer(tcpserver.Options{
		Name:          cfg.Name,
		Host:          cfg.Host,
		MaxLineLength: cfg.MaxLineLength,
		WriteTimeout:  cfg.WriteTimeout,
		Logger:        log.With(logger.Field{Key: "component", Value: "tcpserver"}),
	})

	srv := chat.NewServer(transport, chat.Options{
		Port:         cfg.Port,
		Logger:       log,
		Cooldown:     tracker,
		KickCooldown: cfg.KickCooldown,
	})
	transport.SetHandler(srv)

	// A failed initial bind leaves the server stopped; the operator can still
	// #setport and #start from the console.
	_ = srv.Listen()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go readConsole(srv, log)

	select {
	case <-srv.Done():
	case <-ctx.Done():
		srv.OnOperatorLine("#quit")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := transport.Shutdown(shutdownCtx); err != nil {
		log.Warn("connections did not finish in time", logger.Field{Key: "error", Value: err})
	}

	return nil
}

// readConsole feeds operator lines to srv until standard input ends. The
// server keeps running without a console.
func readConsole(srv *chat.Server, log logger.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		srv.OnOperatorLine(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		log.Error("Unexpected error while reading from console!", logger.Field{Key: "error", Value: err})
		return
	}

	log.Debug("operator console closed")
}

func newLogger(cfg config.Config) (logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.LogDir != "" {
		return logger.NewFileLogger(cfg.Name, cfg.LogDir, level)
	}

	return logger.NewConsoleLogger(os.Stdout, cfg.Name, level), nil
}

// newTracker returns nil when kick cooldown is disabled.
func newTracker(cfg config.Config) (cooldown.Tracker, func()) {
	if cfg.KickCooldown <= 0 {
		return nil, func() {}
	}

	if cfg.CooldownRedisAddr != "" {
		tracker := cooldown.NewRedisTracker(redis.NewClient(&redis.Options{Addr: cfg.CooldownRedisAddr}), cooldown.DefaultRedisPrefix)
		return tracker, func() { _ = tracker.Close() }
	}

	return cooldown.NewMemoryTracker(cfg.KickCooldown), func() {}
}
