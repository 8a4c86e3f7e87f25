// Command modelgen generates model declarations for the di package.
//
// Models are declared explicitly: which struct is a ViewModel or a Store,
// under which name, which fields receive dependencies and which method runs
// after construction. Writing those calls by hand is fine for a few types;
// modelgen keeps them next to the package in a small JSON file instead and
// generates the init() that makes them.
//
// Spec format (*.model.json)
//
//	{
//	  "package": "todo",
//	  "models": [
//	    { "type": "IDSource", "kind": "Store" },
//	    { "type": "TodoStore", "kind": "Store", "name": "todoStore",
//	      "inject": ["IDs"], "postConstruct": "Init" },
//	    { "type": "TodoViewModel", "kind": "ViewModel", "name": "todoViewModel",
//	      "inject": ["Store"] }
//	  ]
//	}
//
// Optional keys:
//
//   - "registry": a Go expression of type *di.Registry used instead of the
//     default registry (for example a package variable).
//   - "imports": { "di": "..." } overrides the di import path.
//
// Before generating, modelgen parses the package and checks that each type is
// a struct with the listed fields and method. Pass -skip-check to generate
// without the check.
//
// Typical go:generate usage
//
// Put this in the owner Go file (same package directory as the spec):
//
//	//go:generate go run ../../cmd/modelgen -spec ./models.model.json -out ./models.gen.go
//
// If the owner file imports the di package under an alias, the generated file
// uses the same alias.
//
// Generated code
//
//	func init() {
//		di.Must(di.Declare[TodoStore](nil).
//			Store("todoStore").
//			Inject("IDs").
//			PostConstruct("Init").
//			Err())
//	}
//
// Declarations run in the order listed. An invalid declaration panics at
// init time with the di error that describes it.
package main
