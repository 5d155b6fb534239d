package main

import "github.com/goplus/bzlpkg/cmd/bzlpkg/internal"

func main() {
	internal.Execute()
}
