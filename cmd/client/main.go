package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"skipgraph/internal/client"
	"skipgraph/internal/domain"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of the skip graph node to query")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout (e.g. 5s)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	c, err := client.New(*timeout)
	if err != nil {
		log.Fatalf("failed to initialize client: %v", err)
	}
	defer c.Close()

	currentAddr, err := domain.ParseAddress(*addr)
	if err != nil {
		log.Fatalf("invalid address %q: %v", *addr, err)
	}

	fmt.Printf("skip graph interactive client. Target %s\n", currentAddr)
	fmt.Println("Available commands: search/slot/ping/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("skipgraph[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {

		case "search":
			if len(args) < 2 {
				fmt.Println("Usage: search <hex-id>")
				cancel()
				continue
			}
			b, err := hex.DecodeString(args[1])
			if err != nil {
				fmt.Printf("invalid hex id %q: %v\n", args[1], err)
				cancel()
				continue
			}
			start := time.Now()
			node, err := c.Search(ctx, currentAddr, domain.Identifier(b))
			delay := time.Since(start)
			switch {
			case err == nil:
				fmt.Printf("search resolved: id=%s addr=%s | latency=%s\n", node.ID, node.Address, delay)
			case errors.Is(err, client.ErrNotFound):
				fmt.Printf("search did not find a match for %s | latency=%s\n", args[1], delay)
			default:
				fmt.Printf("search failed: %v | latency=%s\n", err, delay)
			}

		case "slot":
			if len(args) < 3 {
				fmt.Println("Usage: slot <level> <left|right>")
				cancel()
				continue
			}
			level, err := strconv.Atoi(args[1])
			if err != nil {
				fmt.Printf("invalid level %q: %v\n", args[1], err)
				cancel()
				continue
			}
			var dir domain.Direction
			switch args[2] {
			case "left":
				dir = domain.DirectionLeft
			case "right":
				dir = domain.DirectionRight
			default:
				fmt.Println("direction must be left or right")
				cancel()
				continue
			}
			start := time.Now()
			node, has, err := c.GetLookupTableSlot(ctx, currentAddr, level, dir)
			delay := time.Since(start)
			if err != nil {
				fmt.Printf("slot query failed: %v | latency=%s\n", err, delay)
			} else if !has {
				fmt.Printf("slot [%d,%s] is empty | latency=%s\n", level, args[2], delay)
			} else {
				fmt.Printf("slot [%d,%s]: id=%s addr=%s | latency=%s\n", level, args[2], node.ID, node.Address, delay)
			}

		case "ping":
			start := time.Now()
			alive, err := c.Ping(ctx, currentAddr)
			delay := time.Since(start)
			if err != nil {
				fmt.Printf("ping failed: %v | latency=%s\n", err, delay)
			} else {
				fmt.Printf("alive=%t | latency=%s\n", alive, delay)
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				cancel()
				continue
			}
			newAddr, err := domain.ParseAddress(args[1])
			if err != nil {
				fmt.Printf("invalid address %q: %v\n", args[1], err)
				cancel()
				continue
			}
			currentAddr = newAddr
			fmt.Printf("Switched target to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("Bye!")
			cancel()
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		cancel()
	}
}
