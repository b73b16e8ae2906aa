package main

import "os"

// shutdownSignals trigger a graceful shutdown. SIGTERM is added where it
// exists.
var shutdownSignals = []os.Signal{os.Interrupt}
