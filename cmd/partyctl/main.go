package main

import "github.com/iliyamo/party-booking/internal/cli"

func main() {
	cli.Execute()
}
