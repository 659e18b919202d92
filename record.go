package swr

// Field identifies one externally visible field of a Record.
type Field uint8

const (
	FieldData Field = 1 << iota
	FieldErr
	FieldIsValidating
	FieldIsLoading
)

// FieldSet is a set of Record fields, used to track which fields an
// observer has actually read.
type FieldSet uint8

// Add marks a field as part of the set.
func (s *FieldSet) Add(f Field) { *s |= FieldSet(f) }

// Has reports whether the set contains f.
func (s FieldSet) Has(f Field) bool { return s&FieldSet(f) != 0 }

// Record is the cached state for a single key.
//
// IsLoading is true only while no data has ever been cached for the key.
// IsValidating is true exactly while a request attributable to the key is
// outstanding, including deduped attachers.
type Record struct {
	// Data is the last successfully fetched value. HasData distinguishes
	// a cached nil from "never fetched".
	Data    any
	HasData bool

	// Err is the most recent fetch error. It is cleared on any successful
	// resolution, even when Data is unchanged by the compare function.
	Err error

	IsValidating bool
	IsLoading    bool

	// Arg is the argument that was passed to the fetcher for this key.
	Arg any
}

// Patch is a partial Record write. Only fields with their Set flag raised
// are merged into the stored record.
type Patch struct {
	Data    any
	SetData bool

	// ClearData resets the record to its never-fetched state; used by
	// optimistic-mutation rollback when there was no prior value.
	ClearData bool

	Err    error
	SetErr bool

	IsValidating    bool
	SetIsValidating bool

	IsLoading    bool
	SetIsLoading bool

	Arg    any
	SetArg bool
}

func (p Patch) apply(r Record) Record {
	if p.ClearData {
		r.Data = nil
		r.HasData = false
	} else if p.SetData {
		r.Data = p.Data
		r.HasData = true
	}
	if p.SetErr {
		r.Err = p.Err
	}
	if p.SetIsValidating {
		r.IsValidating = p.IsValidating
	}
	if p.SetIsLoading {
		r.IsLoading = p.IsLoading
	}
	if p.SetArg {
		r.Arg = p.Arg
	}
	return r
}

// DataAs extracts a typed value from a record.
// @group Records
//
// Example: typed access
//
//	rec, _ := coord.Store().Get("user:42")
//	name, ok := swr.DataAs[string](rec)
//	_ = name
//	_ = ok
func DataAs[T any](rec Record) (T, bool) {
	var zero T
	if !rec.HasData {
		return zero, false
	}
	val, ok := rec.Data.(T)
	if !ok {
		return zero, false
	}
	return val, true
}
