// Command ilpstream-echo wires a client and a server Connection back to
// back over a pair of in-memory pluginbridge halves, opens one stream,
// and pushes money and data across it end to end, then drives the
// graceful close handshake. Runs entirely in-process.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/interledger-go/ilp-stream/connection"
	"github.com/interledger-go/ilp-stream/pluginbridge"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (default: built-in demo config)")
	sendAmount := flag.Uint64("amount", 1000, "amount to send on the demo stream")
	flag.Parse()

	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := run(cfg, *sendAmount); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *Config, amount uint64) error {
	secret := []byte(cfg.SharedSecret)

	clientPlugin, serverPlugin := pluginbridge.NewInMemoryPair()
	clientBridge := pluginbridge.New(clientPlugin)
	serverBridge := pluginbridge.New(serverPlugin)

	client := connection.NewClient(clientBridge, secret, cfg.Client.Account, cfg.Server.Account)
	server := connection.NewServer(serverBridge, secret, cfg.Server.Account)
	defer clientBridge.Close()
	defer serverBridge.Close()

	clientStream := client.CreateStream()
	clientStream.SetSendMax(amount)
	payload := []byte("hello from " + cfg.Client.Account)
	if _, err := clientStream.Write(payload); err != nil {
		return fmt.Errorf("writing demo payload: %w", err)
	}

	var serverStream *connection.Stream
	select {
	case serverStream = <-server.Incoming():
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for server to see the client's stream")
	}
	serverStream.Money.SetReceiveMax(amount)

	deadline := time.After(5 * time.Second)
	for clientStream.Money.TotalSent() < amount {
		select {
		case <-deadline:
			return fmt.Errorf("timed out waiting for money to be delivered")
		case <-clientStream.Money.PollCh():
		}
	}

	buf := make([]byte, len(payload))
	read := 0
	for read < len(buf) {
		select {
		case <-deadline:
			return fmt.Errorf("timed out waiting for data to arrive at the server")
		case <-serverStream.Data.PollCh():
		}
		n, _ := serverStream.Read(buf[read:])
		read += n
	}

	fmt.Printf("%s -> %s: sent %d, delivered %d, server received %q\n",
		cfg.Client.Account, cfg.Server.Account,
		clientStream.Money.TotalSent(), clientStream.Money.TotalDelivered(), string(buf))

	clientStream.Close()
	client.Close()
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		return fmt.Errorf("timed out waiting for the connection to close")
	}

	return nil
}
