package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/devicelab-dev/tether/pkg/cli"
)

func main() {
	cli.Execute()
}
