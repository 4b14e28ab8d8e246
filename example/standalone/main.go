package main

import (
	"os"

	"funnel"
)

func main() {
	configPath := "logging.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// Scoped form: Stop runs on every exit path.
	err := funnel.Using(configPath, func(f *funnel.Funnel) error {
		app := f.Channel("app")
		app.Info("application started")
		app.Debug("this is filtered unless root level is DEBUG")

		sub := f.Channel("app.db")
		sub.Warn("slow query", "elapsed_ms", 1520)
		return nil
	})
	if err != nil {
		panic(err)
	}
}
