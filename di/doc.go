// Package di wires view models and stores into a singleton object graph.
//
// It has three parts:
//
//   - Registry: metadata recorded per struct type (kind, name, injected
//     fields, post-construct hook). DefaultRegistry() is process-wide.
//
//   - Declarations: ViewModel, Store, Inject and PostConstruct write into a
//     Registry. They run once, normally from init, by hand or through the
//     code generated by cmd/modelgen.
//
//   - Injector: resolves a type by first resolving its injected fields
//     (recursively, as singletons), constructing the struct, assigning
//     dependencies and props, and calling the hook once. Results are cached
//     by type and by model name. Dependency cycles fail with
//     CircularDependencyError.
//
// Declaring a model
//
//	func init() {
//		di.Must(di.Declare[TodoViewModel](nil).
//			ViewModel("todoViewModel").
//			Inject("Store").
//			PostConstruct("Init").
//			Err())
//	}
//
// Quick use
//
//	vm, err := di.Get[TodoViewModel](nil, nil) // default injector
//	if err != nil {
//		// handle wiring error
//	}
//	di.ModelName(vm)                  // "todoViewModel"
//	di.DefaultInjector().Dump()       // map[name]instance of named models
//
// Import
//
//	"github.com/sghaida/modi/di"
package di
