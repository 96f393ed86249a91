// Command plcpollctl drives a plcpoll Engine from the command line: it
// polls one or more conventional addresses at a fixed rate, prints
// every value change, and optionally issues a single write before
// polling starts.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ironspan/plcpoll"
)

func main() {
	var (
		host         string
		port         int
		rate         string
		timeout      string
		writeAddr    uint
		writeValue   string
		pollAddrList string
	)

	flag.StringVar(&host, "host", "", "PLC host to connect to [required]")
	flag.IntVar(&port, "port", 502, "PLC Modbus/TCP port")
	flag.StringVar(&rate, "rate", "1s", "target interval between poll cycles")
	flag.StringVar(&timeout, "timeout", "1s", "per-transaction timeout")
	flag.StringVar(&pollAddrList, "poll", "", "comma-separated list of conventional addresses to poll")
	flag.UintVar(&writeAddr, "write-addr", 0, "conventional address to write once before polling starts")
	flag.StringVar(&writeValue, "write-value", "", "value to write to -write-addr (true/false for coils, an integer for registers)")
	flag.Parse()

	if host == "" {
		fmt.Fprintln(os.Stderr, "no host specified, please use -host")
		os.Exit(1)
	}

	rateDur, err := time.ParseDuration(rate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse -rate %q: %v\n", rate, err)
		os.Exit(1)
	}

	timeoutDur, err := time.ParseDuration(timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse -timeout %q: %v\n", timeout, err)
		os.Exit(1)
	}

	engine, err := plcpoll.NewEngine(plcpoll.Configuration{
		Host:    host,
		Port:    port,
		Rate:    rateDur,
		Timeout: timeoutDur,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	if writeAddr != 0 {
		if err := doWrite(engine, uint32(writeAddr), writeValue); err != nil {
			fmt.Fprintf(os.Stderr, "write to %d failed: %v\n", writeAddr, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s to %d\n", writeValue, writeAddr)
	}

	addrs, err := parseAddressList(pollAddrList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse -poll: %v\n", err)
		os.Exit(1)
	}

	for _, addr := range addrs {
		if err := engine.Poll(addr); err != nil {
			fmt.Fprintf(os.Stderr, "failed to poll %d: %v\n", addr, err)
			os.Exit(1)
		}
	}

	if len(addrs) == 0 {
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(rateDur)
	defer ticker.Stop()

	last := make(map[uint32]interface{}, len(addrs))

	for {
		select {
		case <-sig:
			return
		case <-ticker.C:
			for _, addr := range addrs {
				v, err := engine.Read(addr)
				if err != nil {
					continue
				}
				if prev, ok := last[addr]; !ok || prev != v {
					fmt.Printf("%d = %v\n", addr, v)
					last[addr] = v
				}
			}
		}
	}
}

func doWrite(engine *plcpoll.Engine, addr uint32, raw string) error {
	if n, err := strconv.ParseUint(raw, 10, 16); err == nil {
		return engine.Write(addr, uint16(n))
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("value %q is neither a bool nor a uint16", raw)
	}

	return engine.Write(addr, b)
}

func parseAddressList(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]uint32, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", p, err)
		}

		out = append(out, uint32(n))
	}

	return out, nil
}
