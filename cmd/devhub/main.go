package main

import "github.com/konverge/devhub/cmd/server"

func main() {
	server.NewServer().Run()
}
