package main

import (
	"context"
	"flag"
	"guardbot/app"
	"guardbot/config"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path of the JSON config, defaults to $"+config.EnvConfigPath)
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	config.SetupLog(conf.LogLevel)
	logrus.Infof("config=%s", conf.Redacted())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.RunBot(ctx, conf); err != nil {
		logrus.Panic(err)
	}
	logrus.Info("bye")
}
