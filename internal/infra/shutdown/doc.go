// Package shutdown runs cleanup hooks when a process stops.
//
// The devserver waits for SIGINT or SIGTERM and then stops its listener.
// The shell registers history and watcher teardown and runs the same
// hooks on a normal exit:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(srv.Shutdown)
//	sig, err := h.Wait(ctx)
package shutdown
