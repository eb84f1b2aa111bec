// Package main provides the object-counter CLI.
//
// Usage:
//
//	object-counter serve
//	object-counter analyze cranes.jpg
//	object-counter analyze --server http://localhost:8080 cranes.jpg
//
// See --help for all available options.
package main

func main() {
	Execute()
}
