package swr

// Listener receives the record state after a write, together with the
// state it replaced.
type Listener func(current, previous Record)

// Store is the shared cache contract the coordinator writes through.
//
// Set shallow-merges a Patch into the stored record and notifies every
// subscriber for the key. Notifications for a key never run backwards:
// when concurrent writers race, implementations must drop the delivery of
// the older write rather than deliver it after the newer one.
type Store interface {
	Get(key string) (Record, bool)
	Set(key string, patch Patch) Record
	Subscribe(key string, fn Listener) (unsubscribe func())
}
