// Command sqlbus-tester exercises the client library end to end: it sends a
// read query and a write query in a loop, printing whatever comes back,
// until a configured stopfile appears on disk. It owns no core logic of its
// own; everything it calls lives in the client package.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/daqtools/sqlbus/client"
	"github.com/daqtools/sqlbus/config"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to the client configuration file")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -config <configfile>\n", os.Args[0])
		os.Exit(1)
	}

	store, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	stopFile := store.GetString("stopfile", "")
	if stopFile == "" {
		fmt.Println("Please include 'stopfile' in configuration")
		fmt.Println("Program will terminate when the stopfile is found")
		os.Exit(1)
	}
	os.Remove(stopFile)

	c, err := client.New(configPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer c.Close()

	for loop := 1; ; loop++ {
		fmt.Println("submitting read query")
		rows, err := c.SendQuery("rundb", "SELECT max(runnum) FROM run", 100*time.Millisecond)
		fmt.Printf("read query %d returned %v, results='%s'\n", loop, err, strings.Join(rows, ", "))

		fmt.Println("doing write query")
		stmt := fmt.Sprintf("INSERT INTO logging ( time, source, severity, message ) VALUES ( 'now()', 'debug', 99, 'testing sqlbus %d' );", loop)
		rows, err = c.SendQuery("monitoringdb", stmt, 2000*time.Millisecond)
		fmt.Printf("write query %d returned %v, results='%s'\n", loop, err, strings.Join(rows, ", "))

		if _, err := os.Stat(stopFile); err == nil {
			fmt.Println("Stopfile found, terminating")
			os.Remove(stopFile)
			break
		}

		time.Sleep(500 * time.Millisecond)
	}
}
