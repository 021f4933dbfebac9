// Package unit implements the per-unit controller of a vertical transport
// simulation.
//
// Each Controller owns one worker goroutine that drains a double-ended job
// inbox in FIFO order and animates motion, doors and passenger transfer with
// fixed tick sleeps. A hard fault is pushed to the head of the inbox and
// cancels the running job; after it is handled the worker exits for good.
// Side effects are reported through a Notifier and never block the worker.
package unit
