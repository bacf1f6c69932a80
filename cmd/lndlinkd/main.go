package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ngutech/lndlink"
	"github.com/ngutech/lndlink/build"
	"github.com/ngutech/lndlink/config"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "lndlinkd"
	app.Version = build.GetTag() + " commit=" + build.GetRevision()
	app.Usage = "bridge between an lnd node and the payment platform"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "path to the config file",
			EnvVar: "LNDLINK_CONFIG",
			Value:  "lndlink.conf.json",
		},
	}
	app.Action = func(c *cli.Context) error {
		conf, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return lndlink.Main(ctx, conf)
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
