// Small manual-test client: sends one command to the socket server and
// prints the reply.
//
//	go run ./cmd/client -addr localhost:9876 -type list_available_commands
//	go run ./cmd/client -type create_node -params '{"node_type":"geo"}'
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	tcp "houdinihub/internal/microservices/tcp"
)

func main() {
	addr := flag.String("addr", "localhost:9876", "socket server address")
	cmdType := flag.String("type", "list_available_commands", "command type to send")
	paramsJSON := flag.String("params", "{}", "command params as a JSON object")
	timeout := flag.Duration("timeout", 15*time.Second, "dial/read timeout")
	flag.Parse()

	var params map[string]any
	if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -params: %v\n", err)
		os.Exit(1)
	}

	payload, err := json.Marshal(map[string]any{
		"type":   *cmdType,
		"params": params,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode command: %v\n", err)
		os.Exit(1)
	}

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(*timeout))

	if _, err := conn.Write(payload); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	// Same framing as the server: read until the buffer parses.
	acc := tcp.NewFrameAccumulator(0)
	buf := make([]byte, 8192)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == io.EOF {
				fmt.Fprintln(os.Stderr, "connection closed before a complete response")
			} else {
				fmt.Fprintf(os.Stderr, "read failed: %v\n", err)
			}
			os.Exit(1)
		}

		res := acc.Feed(buf[:n])
		switch res.Outcome {
		case tcp.FeedMessage:
			pretty, err := json.MarshalIndent(res.Message, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "unprintable response: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(pretty))
			return
		case tcp.FeedMalformed:
			fmt.Fprintf(os.Stderr, "invalid response: %v\n", res.Err)
			os.Exit(1)
		}
	}
}
