// Package flags persists small integer settings that must survive restarts:
// the optimized-defrosting switch and the operating mode to restore after a
// defrost cycle.
package flags
