package main

import (
	"os"
	"sync"

	"funnel"
)

// Owner plus a pool of worker producers sharing one record queue. The owner
// is the only side holding sinks; workers forward everything through the
// queue and the collector serializes all writes.
func main() {
	configPath := "logging.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	owner, err := funnel.New(configPath,
		funnel.WithMultiprocess(),
		funnel.WithQueueCapacity(4096),
	)
	if err != nil {
		panic(err)
	}
	defer owner.Stop()

	owner.Channel("main").Info("owner up", "mode", owner.Mode())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			w, err := funnel.FromQueue(configPath, owner.Queue())
			if err != nil {
				panic(err)
			}
			ch := w.Channel("worker")
			for j := 0; j < 10; j++ {
				ch.Info("work item done", "worker", id, "item", j)
			}
		}(i)
	}
	wg.Wait()

	owner.Channel("main").Info("all workers finished")
}
