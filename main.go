package main

import "github.com/ValentinKolb/hzrd/cmd"

func main() {
	cmd.Execute()
}
