// Package modi is a small model container for view models and stores.
//
// The repository is split into:
//
//   - di: declarations (ViewModel, Store, Inject, PostConstruct), the metadata
//     registry and the injector that builds and caches model singletons
//   - snapshot: plain snapshots of model state, merge and JSON patches, and
//     change listeners
//   - cmd/modelgen: generates declarations from a *.model.json file
//   - cmd/todo, examples/todo: a small app wiring everything together
//
// Declarations are explicit and ordered. Nothing is discovered by scanning
// struct tags, and the injector fails loudly on cycles instead of returning
// half-built models.
package modi
