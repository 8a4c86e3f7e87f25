// Package snapshot reads and writes the state of resolved models as plain,
// serializable values and notifies listeners when that state changes.
//
// The observable state of a model is its exported fields, minus fields tagged
// json:"-" and fields declared as injected dependencies with di.Inject.
// Values are converted through encoding/json, so json tags pick the snapshot
// keys and a snapshot round-trips through JSON or YAML unchanged.
//
//	store := di.MustGet[todo.Store](nil, nil)
//
//	unsubscribe, _ := snapshot.OnSnapshot(store, func(s snapshot.Snapshot) {
//		log.Println("items:", s["items"])
//	})
//	defer unsubscribe()
//
//	_ = snapshot.PatchSnapshot(store, snapshot.Snapshot{"filter": "done"})
//	_ = snapshot.Mutate(store, func() { store.Items = nil })
//
// Apply replaces state wholesale (absent fields are zeroed), Patch is a JSON
// merge patch (RFC 7386), ApplyJSONPatch takes RFC 6902 operations. All three
// decode fully before writing, so a failing call leaves the instance as it
// was, and each notifies listeners at most once.
package snapshot
