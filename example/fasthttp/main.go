package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"funnel"
	"funnel/compat"

	"github.com/valyala/fasthttp"
)

func main() {
	configPath := "logging.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	f, err := funnel.New(configPath)
	if err != nil {
		panic(err)
	}
	defer f.Stop()

	adapter := compat.NewFastHTTPAdapter(
		f.Channel("http"),
		compat.WithDefaultLevel(funnel.LevelInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  adapter,

		Name:         "funnel-example",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) funnel.Level {
	if strings.Contains(msg, "connection cannot be served") {
		return funnel.LevelWarn
	}
	if strings.Contains(msg, "error when serving connection") {
		return funnel.LevelError
	}
	return compat.DetectLogLevel(msg)
}
