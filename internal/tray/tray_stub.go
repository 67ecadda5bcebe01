//go:build !tray

package tray

import "fmt"

func Run(Options) int {
	fmt.Println("claudebar: tray mode not available in this build")
	fmt.Println("rebuild with: go build -tags tray ./cmd/claudebar")
	return 1
}
