// Command cupbot runs the tournament registration bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/m3rciful/cupbot/core/buildinfo"
	corecmd "github.com/m3rciful/cupbot/core/cmd"
	"github.com/m3rciful/cupbot/internal/bot"
	"github.com/m3rciful/cupbot/internal/config"
)

func main() {
	version := flag.Bool("version", false, "print build information and exit")
	flag.Parse()
	if *version {
		fmt.Println("cupbot", buildinfo.String())
		return
	}

	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return config.Load(path)
		},
		Bootstrap: func(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*config.AppConfig)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			return bot.Bootstrap(ctx, cfg)
		},
	})
	if err != nil {
		log.Printf("cupbot: %v", err)
		os.Exit(1)
	}
}
