package main

import "github.com/sumologic-library/query-profiler/cmd"

func main() {
	cmd.Execute()
}
