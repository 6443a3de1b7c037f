// Command shpgeo inspects shapefiles and geocodes against their records.
//
// Usage:
//
//	shpgeo [-config file] <command> [flags] [args]
//
// Commands:
//
//	info         print a shapefile's header and fields
//	catalog      list the shapefiles under a directory, optionally by area
//	query        select records by box, radius or nearest neighbours
//	geocode      resolve addresses or place names to coordinates
//	reverse      resolve a coordinate to the place containing or nearest it
//	batch        geocode one address per input line
//	serve        run the HTTP API
//	interactive  open the terminal UI
//	export       copy records into PostgreSQL
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/beetlebugorg/shapefile/internal/config"
	"github.com/beetlebugorg/shapefile/internal/logger"
)

type command struct {
	name  string
	usage string
	run   func(cfg *config.AppConfig, args []string) error
}

var commands = []command{
	{"info", "info <file.shp>", runInfo},
	{"catalog", "catalog [-bbox minx,miny,maxx,maxy] [-type Polygon] <dir>", runCatalog},
	{"query", "query [-bbox b | -point x,y [-radius r | -nearest k]] [-out base] [-json] <file.shp>", runQuery},
	{"geocode", "geocode [-data path] [-n N] [-json] <address>...", runGeocode},
	{"reverse", "reverse [-data path] [-max d] [-json] <x> <y>", runReverse},
	{"batch", "batch [-data path] [-in file] [-out file]", runBatch},
	{"serve", "serve [-data path] [-addr :8080] [-cache memory|redis|none]", runServe},
	{"interactive", "interactive [-data path]", runInteractive},
	{"export", "export [-data path] [-table name] [-dsn url] [-source name]", runExport},
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: shpgeo [-config file] <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  shpgeo %s\n", c.usage)
	}
}

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "YAML config file (default ./shpgeo.yaml or ~/.config/shpgeo/config.yaml)")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, cfgPath, err = config.LoadDefault()
	}
	if err != nil {
		l.Error("config_load_failed", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	config.ApplyEnv(cfg)

	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(cfg, args); err != nil {
			fmt.Fprintf(os.Stderr, "shpgeo %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "shpgeo: unknown command %q\n\n", name)
	usage()
	os.Exit(2)
}
