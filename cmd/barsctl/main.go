// Command barsctl is an admin CLI for querying a running barshub server's
// /state endpoint.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "barshub base URL")
	airport := flag.String("airport", "", "ICAO airport code, or \"all\"")
	offline := flag.Bool("offline", false, "force offline (Point Catalogue baseline) snapshot")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Println("barsctl 0.1.0")
		os.Exit(0)
	}
	if *airport == "" {
		printUsage()
		os.Exit(2)
	}

	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd())

	if err := run(*baseURL, *airport, *offline); err != nil {
		color.Red("error: %v\n", err)
		os.Exit(1)
	}
}

func run(baseURL, airport string, offline bool) error {
	url := fmt.Sprintf("%s/state?airport=%s", baseURL, airport)
	if offline {
		url += "&offline=true"
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}

	color.Cyan("%s\n", url)
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "barsctl queries a barshub server's /state endpoint.")
	fmt.Fprintln(os.Stderr, "\nUsage:")
	fmt.Fprintln(os.Stderr, "  barsctl -airport <ICAO>|all [-url http://host:port] [-offline]")
	flag.PrintDefaults()
}
