package main

import "price-pipeline/cmd"

func main() {
	cmd.Execute()
}
