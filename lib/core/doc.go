// Package core implements the read and swap protocol of a single hazard-protected
// value.
//
// A reader announces the value it loaded in its hazard slot and then loads the
// pointer again. If both loads agree, the value was current after it was
// announced, so any writer that replaces it afterwards will find it in the slot
// when it tries to reclaim it. Otherwise the reader retries with the newer value.
//
// Writers never wait for readers: Swap exchanges the pointer and hands the old
// value back for retirement. Only reclamation looks at the slots.
package core
