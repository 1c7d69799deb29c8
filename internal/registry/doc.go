// Package registry holds the protocol entities of one heat pump and
// arbitrates access to the bus.
//
// The Registry routes inbound frames to the first entity whose fingerprint
// matches and decides which entity may issue the next poll:
//
//  1. No request within Delay of the last handled frame (global pacing).
//  2. No request while any entity has one outstanding (single flight).
//  3. Among due entities the most overdue wins; ties go to the entity
//     registered first.
//
// An outstanding request older than Timeout is abandoned so a lost answer
// cannot stall the bus.
//
// # Thread Safety
//
// The Registry is not synchronised. It is owned by the engine goroutine and
// every method must be called from it.
package registry
