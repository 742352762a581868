// Package main provides the claude-vigil monitoring daemon entry point.
package main

func main() {
	Execute()
}
