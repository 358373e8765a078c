package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/UNH-DistSyS/UNH-SEM/config"
	"github.com/UNH-DistSyS/UNH-SEM/driver"
	"github.com/UNH-DistSyS/UNH-SEM/log"
)

var configFile = flag.String("config", "", "Configuration file in JSON format. Built-in defaults are used when empty.")
var logLevel = flag.String("log_level", "", "Log severity level: debug, info, warning, error. Overrides the config.")
var traceFile = flag.String("trace", "", "Write one csv row per completed task to this file.")
var chartFile = flag.String("chart", "", "Render available permits per completed task to this png file.")

func main() {
	flag.Parse()
	cfg := config.MakeDefaultConfig()
	if *configFile != "" {
		cfg = config.LoadConfigFromFile(*configFile)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *traceFile != "" {
		cfg.TraceFile = *traceFile
	}
	if *chartFile != "" {
		cfg.ChartFile = *chartFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	log.SetSeverityLevel(cfg.LogLevel)
	log.Debugf("config: %v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := driver.NewDriver(cfg, os.Stdout).Run(ctx)
	stop()

	fmt.Println("main process finished")
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
