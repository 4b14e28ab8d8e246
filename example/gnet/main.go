package main

import (
	"os"

	"funnel"
	"funnel/compat"

	"github.com/panjf2000/gnet/v2"
)

type echoServer struct {
	gnet.BuiltinEventEngine
}

func (es *echoServer) OnTraffic(c gnet.Conn) gnet.Action {
	buf, _ := c.Next(-1)
	c.Write(buf)
	return gnet.None
}

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

	adapter := compat.NewGnetAdapter(f.Channel("gnet"))

	err = gnet.Run(
		&echoServer{},
		"tcp://127.0.0.1:9000",
		gnet.WithMulticore(true),
		gnet.WithLogger(adapter),
		gnet.WithReusePort(true),
	)
	if err != nil {
		panic(err)
	}
}
