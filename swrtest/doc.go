// Package swrtest provides a reusable contract suite for swr.Store
// implementations.
//
// Custom stores can verify merge and notification semantics without
// duplicating the root package's tests:
//
//	func TestMyStoreContract(t *testing.T) {
//		swrtest.RunStoreContract(t, newMyStore(), swrtest.Options{})
//	}
package swrtest
