// Package cell provides Cell, a single value that is read without locks and
// replaced by writers, with replaced values reclaimed through hazard pointers.
//
// Example usage:
//
//	c := cell.New(config, cell.WithReclaimer(func(old *Config) { old.Close() }))
//
//	// one-off read
//	ref := c.Read()
//	use(ref.Value())
//	ref.Close()
//
//	// hot loop: keep a slot for the whole loop
//	r := c.Reader()
//	defer r.Close()
//	for {
//		g := r.Read()
//		use(g.Value())
//		g.Release()
//	}
//
//	// writer
//	c.Set(newConfig)
//
// Cells use the process-wide domain (hazard.Default) unless WithDomain binds
// them to a Shared or Local domain. Reclaimers run at the latest when the
// domain's next reclamation pass finds the value unprotected; Set triggers such
// a pass opportunistically.
package cell
