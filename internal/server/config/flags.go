package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/casely/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-d string   SQLite database path
//	-s string   static files directory
//	-o string   origin base URL
//	-p int      list page size
//	-i int      delay between items, ms
//	-w int      delay between pages, ms
//	-t int      origin HTTP timeout, seconds
//	-m int      minimum contract id
//	-r int      refresh TTL, ms (0 disables the sweep)
//	-n int      max records per refresh sweep
//	-y int      scheduler cycle interval, ms
//	-l string   log level
//	-f string   log file (rotated); stdout when empty
//
// Secrets (archive keys) are only read from the JSON file.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-o", "-p", "-i", "-w", "-t", "-m", "-r", "-n", "-y", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.DatabasePath, "d", config.DatabasePath, "database path")
	fs.StringVar(&config.StaticDir, "s", config.StaticDir, "static files directory")
	fs.StringVar(&config.OriginBaseURL, "o", config.OriginBaseURL, "origin base URL")
	fs.IntVar(&config.PageSize, "p", config.PageSize, "list page size")

	itemDelay := fs.Int("i", int(config.ItemDelay.Milliseconds()), "delay between items (in ms)")
	pageDelay := fs.Int("w", int(config.PageDelay.Milliseconds()), "delay between pages (in ms)")
	httpTimeout := fs.Int("t", int(config.HTTPTimeout.Seconds()), "origin HTTP timeout (in seconds)")

	fs.Int64Var(&config.MinContractID, "m", config.MinContractID, "minimum contract id")

	refreshTTL := fs.Int("r", int(config.RefreshTTL.Milliseconds()), "refresh TTL (in ms, 0 disables)")

	fs.IntVar(&config.RefreshBatch, "n", config.RefreshBatch, "max records per refresh sweep")

	cycleInterval := fs.Int("y", int(config.CycleInterval.Milliseconds()), "scheduler cycle interval (in ms)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "f", config.LogFile, "log file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ItemDelay = time.Duration(*itemDelay) * time.Millisecond
	config.PageDelay = time.Duration(*pageDelay) * time.Millisecond
	config.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
	config.RefreshTTL = time.Duration(*refreshTTL) * time.Millisecond
	config.CycleInterval = time.Duration(*cycleInterval) * time.Millisecond
}
