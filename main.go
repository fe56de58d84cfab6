package main

import "github.com/mkuran/gatewarden/cmd"

func main() {
	cmd.Execute()
}
