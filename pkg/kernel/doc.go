// Package kernel defines the syscall boundary with a capability-scoped
// embedded kernel.
package kernel

// An application addresses a privileged driver by numeric identifier and
// talks to it with four primitives: command fires a driver-specific
// opcode, subscribe registers a completion upcall for a driver/slot
// pair, allow grants the driver access to an application-owned memory
// region, and yield cooperatively suspends the calling goroutine until
// upcalls are delivered.
//
// Scheduling is cooperative and single-threaded from the application's
// point of view: upcalls run only while the application sits inside
// Yield, never concurrently with its own code.
//
// Producer: a kernel implementation (see sim, remote)
// Consumer: driver clients (see pkg/driver)
