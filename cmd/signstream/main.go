package main

import "github.com/ayusman/signstream/internal/cli"

func main() {
	cli.Execute()
}
