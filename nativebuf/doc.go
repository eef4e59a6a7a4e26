// Package nativebuf models producer-owned native buffers and the access
// discipline softenc uses to read them.
//
// A native buffer is pixel storage owned by the producer and referenced by an
// opaque Handle. Reading it requires a lock/unlock bracket: Lock (or
// LockYCbCr) yields a read-only view over the storage, Unlock ends the
// bracket and invalidates the view. Exactly one bracket is held per
// extraction call, and the view must never be used after Unlock.
//
// # Registry
//
// Registry is the host-facing side: the component that owns the real storage
// registers Buffers and hands the resulting Handles to producers, which
// embed them in metadata descriptors. Registry implements Mapper, the
// interface the extraction path consumes.
//
// # Fences
//
// A Fence signals "data in this buffer is ready to read". Producers attach
// fence descriptors to native-window metadata; the extraction path waits on
// the fence, bounded by WaitTimeout, before touching the pixels. A fence is
// consumed at most once. FenceTable maps the small integer fence descriptors
// carried on the wire to Fence objects.
package nativebuf
