package chat

import "github.com/atotto/clipboard"

// copyText puts text on the system clipboard.
func copyText(text string) error {
	return clipboard.WriteAll(text)
}
