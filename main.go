package main

import (
	"log"
	"os"

	"github.com/joshnies/datadoc/cmd"
	"github.com/joshnies/datadoc/config"
)

func main() {
	// Initialize config
	config.InitConfig()

	// Initialize CLI app
	app := cmd.NewApp()

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
