package main

import (
	"fmt"
	"os"

	"cryptobot-signal/internal/app"
	"cryptobot-signal/internal/config"
	"cryptobot-signal/pkg/logger"
	"cryptobot-signal/pkg/tracing"

	"github.com/joho/godotenv"
)

var (
	loadEnvFunc     = godotenv.Load
	loadConfigFunc  = config.Load
	newLoggerFunc   = logger.NewOrNop
	initTracerFunc  = tracing.InitTracer
	newPipelineFunc = app.NewPipeline
	exitFunc        = os.Exit
)

func main() {
	_ = loadEnvFunc()

	root := newRootCmd(loadConfigFunc())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}
