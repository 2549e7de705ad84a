// Command chatclient connects to a chat relay, logs in and relays lines
// between the terminal and the server.
//
//	chatclient -login alice -host localhost -port 5555
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/cyberinferno/simplechat/chatclient"
	"github.com/cyberinferno/simplechat/config"
	"github.com/cyberinferno/simplechat/logger"
)

func main() {
	login := flag.String("login", "", "Login ID sent as the first line (required)")
	host := flag.String("host", "localhost", "Relay host")
	port := flag.Int("port", config.DefaultPort, "Relay port")
	reconnect := flag.Bool("reconnect", false, "Redial after the connection is lost")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *login == "" {
		fmt.Fprintln(os.Stderr, "chatclient: -login is required")
		flag.Usage()
		os.Exit(2)
	}

	lvl, err := logger.ParseLevel(*level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatclient: %v\n", err)
		os.Exit(2)
	}
	log := logger.NewConsoleLogger(os.Stderr, "chatclient", lvl)

	cfg := chatclient.DefaultConfig(net.JoinHostPort(*host, strconv.Itoa(*port)))
	cfg.AutoReconnect = *reconnect

	client := chatclient.New(cfg)
	client.OnLine(func(e chatclient.LineEvent) {
		fmt.Println(e.Line)
	})
	client.OnError(func(e chatclient.ErrorEvent) {
		log.Error("Connection error", logger.Field{Key: "error", Value: e.Error})
	})
	client.OnConnectionState(func(e chatclient.ConnectionStateEvent) {
		log.Debug("connection state changed", logger.Field{Key: "state", Value: e.State.String()}, logger.Field{Key: "addr", Value: e.Address})

		switch e.State {
		case chatclient.Connected:
			if err := client.Login(*login); err != nil {
				log.Error("Couldn't log in", logger.Field{Key: "error", Value: err})
			}
		case chatclient.Disconnected:
			log.Warn("Connection to the server was lost")
		}
	})

	if err := client.Connect(); err != nil {
		log.Error("Cannot open connection", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}
	defer client.Close()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := client.Send(scanner.Text()); err != nil {
			log.Error("Could not send message to server", logger.Field{Key: "error", Value: err})
		}
	}
}
