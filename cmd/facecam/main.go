package main

import "github.com/ayusman/facecam/internal/cli"

func main() {
	cli.Execute()
}
