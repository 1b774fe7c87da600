package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	clientcmd "github.com/s21platform/user-stream-service/internal/cmd/client"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := clientcmd.NewRoot(apiURL).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("STREAM_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8765"
}
