package main

import (
	"log"

	"github.com/genostore/genostore/cmd/gsc/cmd"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		log.Printf("exec cmd failed, err:%v", err)
	}
}
