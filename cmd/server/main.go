package main

import (
	"github.com/gridironlabs/scoutgraph/internal/server"
	"github.com/gridironlabs/scoutgraph/internal/util"
	"github.com/gridironlabs/scoutgraph/pkg/logger"
	"github.com/gridironlabs/scoutgraph/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
