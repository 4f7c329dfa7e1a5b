package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/icomwland/icomwland/pkg/client"
)

var (
	socketPath = flag.String("socket", "/tmp/icomwland.sock", "Unix socket path")
	command    = flag.String("cmd", "", "Command to send (e.g., 'STATUS', 'EVENTS:10')")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	if *command == "" {
		if len(flag.Args()) > 0 {
			*command = strings.Join(flag.Args(), " ")
		} else {
			showHelp()
			return
		}
	}

	sockClient := client.NewSocketClient(*socketPath)

	response, err := sockClient.SendCommand(*command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", response.String())
}

func showHelp() {
	fmt.Println("icomwlandctl - icomwland Daemon Control Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/icomwland.sock)")
	fmt.Println("  -cmd <command>    Command to send")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  STATUS                    Get connection status")
	fmt.Println("  METRICS                   Get controller metrics")
	fmt.Println("  EVENTS                    Get recent lifecycle events")
	fmt.Println("  EVENTS:10                 Get last 10 lifecycle events")
	fmt.Println("  EVENTS:kind:reconnect_failed  Filter events by kind")
	fmt.Println("  CONNECT                   Bring up the radio connection")
	fmt.Println("  DISCONNECT                Tear down the radio connection")
	fmt.Println("  DISCONNECT:<reason>       Tear down with a given reason")
	fmt.Println("  PING                      Test connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s STATUS\n", os.Args[0])
	fmt.Printf("  %s EVENTS:10\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/icomwland.sock\n")
}
