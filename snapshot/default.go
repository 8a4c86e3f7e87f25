package snapshot

import "sync"

var (
	defaultOnce   sync.Once
	defaultBridge *Bridge
)

// Default returns the process-wide bridge used by the package-level
// functions. It reads dependency metadata from di.DefaultRegistry().
func Default() *Bridge {
	defaultOnce.Do(func() { defaultBridge = New() })
	return defaultBridge
}

// GetSnapshot returns the observable state of instance. See Bridge.Get.
func GetSnapshot(instance any) (Snapshot, error) { return Default().Get(instance) }

// ApplySnapshot replaces the observable state of instance. See Bridge.Apply.
func ApplySnapshot(instance any, s Snapshot) error { return Default().Apply(instance, s) }

// PatchSnapshot merges patch into the state of instance. See Bridge.Patch.
func PatchSnapshot(instance any, patch Snapshot) error { return Default().Patch(instance, patch) }

// ApplyJSONPatch applies RFC 6902 operations to instance. See Bridge.ApplyJSONPatch.
func ApplyJSONPatch(instance any, ops []byte) error { return Default().ApplyJSONPatch(instance, ops) }

// OnSnapshot subscribes l to changes of instance. See Bridge.OnSnapshot.
func OnSnapshot(instance any, l Listener) (func(), error) { return Default().OnSnapshot(instance, l) }

// Mutate runs fn as an observed change of instance. See Bridge.Mutate.
func Mutate(instance any, fn func()) error { return Default().Mutate(instance, fn) }
