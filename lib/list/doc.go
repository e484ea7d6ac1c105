// Package list provides an intrusive doubly-linked list whose nodes live in
// an arena and are addressed by stable handles.
//
// Features and Guarantees:
//
//   - O(1) PushFront, PushBack, PopFront, PopBack
//   - O(1) Remove of an arbitrary node given its Handle
//   - Stable addresses: the pointer returned by Get stays valid (and never moves)
//     until the node is removed, even while the list keeps growing
//   - Forward and backward traversal that yields pointers to the stored values
//     instead of copies
//
// Nodes are allocated in fixed-size chunks that are never reallocated, removed
// nodes are recycled through a free-list. This gives the same O(1)
// removal-by-address of a pointer-linked list without handing out raw memory.
//
// Thread-safety: a List is not safe for concurrent use. Callers that share a
// list between goroutines must synchronise externally.
//
// Passing a Handle that does not belong to the list, or that was already
// removed, is a programming error and is not detected.
package list
