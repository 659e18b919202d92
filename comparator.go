package swr

import "reflect"

// changedFields reports which externally visible fields differ between two
// snapshots. Data uses the configured comparison, with one exception: when
// the previous snapshot never held data, the first real value always
// counts as a change so it propagates to the observer.
func changedFields(prev, next Record, compare CompareFunc) FieldSet {
	var fs FieldSet
	if prev.HasData != next.HasData {
		fs.Add(FieldData)
	} else if next.HasData && !compare(prev.Data, next.Data) {
		fs.Add(FieldData)
	}
	if !sameError(prev.Err, next.Err) {
		fs.Add(FieldErr)
	}
	if prev.IsValidating != next.IsValidating {
		fs.Add(FieldIsValidating)
	}
	if prev.IsLoading != next.IsLoading {
		fs.Add(FieldIsLoading)
	}
	return fs
}

// sameError is identity comparison with a guard against non-comparable
// error types, which would make == panic.
func sameError(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
