// Command shopctl is the terminal client of the shop admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"shop-admin-api/internal/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", errorText(err))
		os.Exit(1)
	}
}

// errorText is the message shown for a failed command. API errors show the
// server message; anything else its own text.
func errorText(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return client.Message(err)
	}
	return err.Error()
}
