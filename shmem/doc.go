// Package shmem implements the shared-memory side channel used for
// high-bandwidth sensor payloads. Multi-megapixel camera frames and
// dense lidar point clouds would saturate the control socket and pay
// serialization overhead on every poll; a shared region turns that
// into a local memory copy plus a small data-ready notification over
// the existing socket protocol.
//
// A region is negotiated over a live connection (the simulator maps
// the same named region on its side), read locally, and must be closed
// explicitly. Close is idempotent and works even after the owning
// connection died, because leaked OS-level segments outlive the
// process otherwise.
package shmem
