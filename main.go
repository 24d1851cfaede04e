package main

import "github.com/controlbox-racing/controlbox-service-manager-go/cmd"

func main() {
	cmd.Execute()
}
