package main

import "SampleFinder/cmd"

func main() {
	cmd.Execute()
}
