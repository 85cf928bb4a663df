package main

import (
	_ "expvar"
	_ "net/http/pprof"
)

func main() {
	startWithDig()
}
