package main

import "github.com/karlseb/ttpharvest/cmd"

func main() {
	cmd.Execute()
}
