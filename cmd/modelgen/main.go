// cmd/modelgen/main.go
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
)

// This binary is a code-generation tool.
//
// It reads a JSON declaration of the models in one package and generates an
// init() that registers them with the di package: kind, name, injected fields
// and post-construct hook, in the order they are listed.
//
// Key behaviors:
// - Reads spec JSON: package, registry expression, models
// - Checks the listed types, fields and methods against the package source
// - Locates the "owner" Go file (the file containing the go:generate for cmd/modelgen)
// - Reuses the owner's import of the di package (and its alias) when it has one
// - Writes output atomically (temp file + rename) to avoid partial writes

// defaultDIImport is the di import path used when neither the owner file nor the
// spec names one.
const defaultDIImport = "github.com/sghaida/modi/di"

// Model declares one struct type of the package.
type Model struct {
	// Type is the struct type name, unqualified.
	Type string `json:"type"`

	// Kind is "ViewModel", "Store" or empty for a plain type that only
	// declares dependencies or a hook.
	Kind string `json:"kind"`

	// Name is the model name. Requires Kind.
	Name string `json:"name"`

	// Inject lists the fields that receive dependencies, in resolution order.
	Inject []string `json:"inject"`

	// PostConstruct is the method called after construction.
	PostConstruct string `json:"postConstruct"`
}

// Imports defines external packages required by the generated code.
type Imports struct {
	// Optional di import path. Used only when the owner file does not import di.
	DI string `json:"di"`
}

// Spec is the full input schema consumed by the generator.
type Spec struct {
	Package string `json:"package"`

	// Registry is a Go expression evaluating to *di.Registry, e.g. a package
	// variable. Empty means nil (the default registry).
	Registry string `json:"registry"`

	Imports Imports `json:"imports"`
	Models  []Model `json:"models"`
}

// ImportSpec models one Go import: optional alias and full import path.
type ImportSpec struct {
	Alias string
	Path  string
}

// templateData is the input passed to the Go template.
type templateData struct {
	Spec     Spec
	Import   ImportSpec
	DI       string
	Registry string
}

// run executes the generator logic and returns an exit code.
// It exists separately from main to allow unit testing without os.Exit.
func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("modelgen", flag.ContinueOnError)
	flags.SetOutput(stderr)

	specPath := flags.String("spec", "", "path to models.model.json")
	outPath := flags.String("out", "", "output .gen.go file path")
	skipCheck := flags.Bool("skip-check", false, "do not check the spec against the package source")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if strings.TrimSpace(*specPath) == "" || strings.TrimSpace(*outPath) == "" {
		_, _ = fmt.Fprintln(stderr, "usage: modelgen -spec <file.model.json> -out <file.gen.go>")
		return 2
	}

	specBytes, err := os.ReadFile(*specPath)
	must(err)

	var spec Spec
	must(json.Unmarshal(specBytes, &spec))

	validateSpec(&spec)

	generatedFilePath := filepath.Clean(*outPath)
	packageDir := filepath.Dir(generatedFilePath)

	if !*skipCheck {
		must(checkModelsAgainstSource(&spec, packageDir))
	}

	ownerGoFilePath, err := findOwnerGoGenerateFile(packageDir)
	if err != nil {
		// Without an owner file we fall back to spec.imports.di or the default path.
		ownerGoFilePath = ""
	}

	imp, ident := resolveDIImport(ownerGoFilePath, &spec)

	registry := strings.TrimSpace(spec.Registry)
	if registry == "" {
		registry = "nil"
	}

	data := templateData{
		Spec:     spec,
		Import:   imp,
		DI:       ident,
		Registry: registry,
	}

	var out bytes.Buffer
	must(genTemplate.Execute(&out, data))

	src, err := format.Source(out.Bytes())
	if err != nil {
		panic(fmt.Errorf("generated code does not parse: %w", err))
	}

	must(writeFileAtomic(generatedFilePath, src, 0o644))
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// validateSpec validates semantic correctness of the input specification.
func validateSpec(spec *Spec) {
	var missingFields []string

	requireNonEmpty := func(fieldName, value string) {
		if strings.TrimSpace(value) == "" {
			missingFields = append(missingFields, fieldName)
		}
	}

	requireNonEmpty("package", spec.Package)

	if len(spec.Models) == 0 {
		missingFields = append(missingFields, "models (must have at least 1)")
	}

	if len(missingFields) > 0 {
		panic(fmt.Errorf("spec missing required fields: %v", missingFields))
	}

	seenTypes := make(map[string]struct{}, len(spec.Models))
	seenNames := make(map[string]string, len(spec.Models))

	for _, model := range spec.Models {
		if !token.IsIdentifier(model.Type) {
			panic(fmt.Errorf("model type must be an identifier; got: %+v", model))
		}
		if _, ok := seenTypes[model.Type]; ok {
			panic(fmt.Errorf("duplicate model type: %s", model.Type))
		}
		seenTypes[model.Type] = struct{}{}

		switch model.Kind {
		case "ViewModel", "Store":
		case "":
			if model.Name != "" {
				panic(fmt.Errorf("model %s: name %q requires a kind", model.Type, model.Name))
			}
			if len(model.Inject) == 0 && model.PostConstruct == "" {
				panic(fmt.Errorf("model %s declares nothing", model.Type))
			}
		default:
			panic(fmt.Errorf("model %s: unknown kind %q (want ViewModel or Store)", model.Type, model.Kind))
		}

		if model.Name != "" {
			if other, ok := seenNames[model.Name]; ok {
				panic(fmt.Errorf("duplicate model name %q: %s and %s", model.Name, other, model.Type))
			}
			seenNames[model.Name] = model.Type
		}

		seenFields := make(map[string]struct{}, len(model.Inject))
		for _, field := range model.Inject {
			if !token.IsIdentifier(field) || !token.IsExported(field) {
				panic(fmt.Errorf("model %s: inject field must be an exported identifier; got %q", model.Type, field))
			}
			if _, ok := seenFields[field]; ok {
				panic(fmt.Errorf("model %s: duplicate inject field: %s", model.Type, field))
			}
			seenFields[field] = struct{}{}
		}

		if model.PostConstruct != "" && (!token.IsIdentifier(model.PostConstruct) || !token.IsExported(model.PostConstruct)) {
			panic(fmt.Errorf("model %s: postConstruct must be an exported method name; got %q", model.Type, model.PostConstruct))
		}
	}
}

// findOwnerGoGenerateFile finds the Go source file in packageDir that contains a go:generate
// directive invoking cmd/modelgen.
//
// This is used to discover the owner file’s di import so generated code matches local style.
func findOwnerGoGenerateFile(packageDir string) (string, error) {
	dirEntries, err := os.ReadDir(packageDir)
	if err != nil {
		return "", err
	}

	for _, entry := range dirEntries {
		if entry.IsDir() || !isSourceFile(entry.Name()) {
			continue
		}

		filePath := filepath.Join(packageDir, entry.Name())
		fileBytes, err := os.ReadFile(filePath)
		if err != nil {
			// Best-effort: unreadable file shouldn’t break generation.
			continue
		}

		if bytes.Contains(fileBytes, []byte("go:generate")) && bytes.Contains(fileBytes, []byte("cmd/modelgen")) {
			return filePath, nil
		}
	}

	return "", fmt.Errorf("could not find owner file with go:generate invoking cmd/modelgen in %s", packageDir)
}

// isSourceFile reports whether a file name is a hand-written, non-test Go file.
func isSourceFile(fileName string) bool {
	return strings.HasSuffix(fileName, ".go") &&
		!strings.HasSuffix(fileName, "_test.go") &&
		!strings.HasSuffix(fileName, ".gen.go")
}

// readImportsFromFile parses imports from a Go file.
func readImportsFromFile(goFilePath string) ([]ImportSpec, error) {
	fileSet := token.NewFileSet()
	parsedFile, err := parser.ParseFile(fileSet, goFilePath, nil, parser.ImportsOnly)
	if err != nil {
		return nil, err
	}

	var imports []ImportSpec
	for _, importDecl := range parsedFile.Imports {
		importPath := strings.Trim(importDecl.Path.Value, `"`)
		importAlias := ""
		if importDecl.Name != nil {
			importAlias = importDecl.Name.Name
		}
		imports = append(imports, ImportSpec{Alias: importAlias, Path: importPath})
	}

	return imports, nil
}

func importDefaultIdent(importPath string) string {
	// Import paths always use forward slashes, even on Windows.
	return path.Base(strings.TrimSpace(importPath))
}

// resolveDIImport returns the di import for the generated file and the
// identifier generated code uses to refer to it.
//
// Rules:
//   - The import path is spec.imports.di, or defaultDIImport when empty.
//   - If the owner file imports that path under a usable alias, reuse the alias.
//   - Blank and dot imports are not usable; the path is then imported plainly.
func resolveDIImport(ownerFilePath string, spec *Spec) (ImportSpec, string) {
	diPath := strings.TrimSpace(spec.Imports.DI)
	if diPath == "" {
		diPath = defaultDIImport
	}

	if strings.TrimSpace(ownerFilePath) != "" {
		if ownerImports, err := readImportsFromFile(ownerFilePath); err == nil {
			for _, imp := range ownerImports {
				if imp.Path != diPath {
					continue
				}
				if imp.Alias != "" && imp.Alias != "_" && imp.Alias != "." {
					return imp, imp.Alias
				}
				break
			}
		}
		// If parsing fails, fall back to a plain import.
	}

	return ImportSpec{Path: diPath}, importDefaultIdent(diPath)
}

// typeInfo is what the generator knows about one struct type in the package.
type typeInfo struct {
	fields  map[string]struct{}
	methods map[string]struct{}
}

// checkModelsAgainstSource verifies that every model names a struct type
// declared in sourceDir, with the listed fields and post-construct method.
//
// Behavior:
// - If sourceDir cannot be read, the check is skipped (nil).
// - Files that fail to parse are skipped; partial ASTs are still used.
// - Embedded fields do not count: injected fields must be declared directly.
func checkModelsAgainstSource(spec *Spec, sourceDir string) error {
	dirEntries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil
	}

	types := map[string]*typeInfo{}
	info := func(name string) *typeInfo {
		ti, ok := types[name]
		if !ok {
			ti = &typeInfo{fields: map[string]struct{}{}, methods: map[string]struct{}{}}
			types[name] = ti
		}
		return ti
	}
	structs := map[string]struct{}{}

	fileSet := token.NewFileSet()
	for _, entry := range dirEntries {
		if entry.IsDir() || !isSourceFile(entry.Name()) {
			continue
		}

		parsedFile, _ := parser.ParseFile(fileSet, filepath.Join(sourceDir, entry.Name()), nil, parser.AllErrors)
		if parsedFile == nil {
			continue
		}

		for _, declaration := range parsedFile.Decls {
			switch decl := declaration.(type) {
			case *ast.GenDecl:
				for _, s := range decl.Specs {
					typeSpec, ok := s.(*ast.TypeSpec)
					if !ok {
						continue
					}
					structType, ok := typeSpec.Type.(*ast.StructType)
					if !ok {
						continue
					}
					structs[typeSpec.Name.Name] = struct{}{}
					ti := info(typeSpec.Name.Name)
					for _, field := range structType.Fields.List {
						for _, name := range field.Names {
							ti.fields[name.Name] = struct{}{}
						}
					}
				}
			case *ast.FuncDecl:
				if decl.Recv == nil || len(decl.Recv.List) != 1 {
					continue
				}
				if recv := receiverTypeName(decl.Recv.List[0].Type); recv != "" {
					info(recv).methods[decl.Name.Name] = struct{}{}
				}
			}
		}
	}

	for _, model := range spec.Models {
		if _, ok := structs[model.Type]; !ok {
			return fmt.Errorf("model %s: no struct type %s in %s", model.Type, model.Type, sourceDir)
		}
		ti := types[model.Type]
		for _, field := range model.Inject {
			if _, ok := ti.fields[field]; !ok {
				return fmt.Errorf("model %s: no field %s", model.Type, field)
			}
		}
		if model.PostConstruct != "" {
			if _, ok := ti.methods[model.PostConstruct]; !ok {
				return fmt.Errorf("model %s: no method %s", model.Type, model.PostConstruct)
			}
		}
	}
	return nil
}

// receiverTypeName returns T for receivers of type T or *T.
func receiverTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// genTemplate is the Go source template used to generate the registration code.
// Its output is passed through go/format.
var genTemplate = template.Must(
	template.New("modelgen").Parse(`// Code generated by modelgen; DO NOT EDIT.

package {{.Spec.Package}}

import {{if .Import.Alias}}{{.Import.Alias}} {{end}}"{{.Import.Path}}"

func init() {
{{- range .Spec.Models}}
	{{$.DI}}.Must({{$.DI}}.Declare[{{.Type}}]({{$.Registry}}).
	{{- if .Kind}}
		{{.Kind}}({{if .Name}}{{printf "%q" .Name}}{{end}}).
	{{- end}}
	{{- range .Inject}}
		Inject({{printf "%q" .}}).
	{{- end}}
	{{- if .PostConstruct}}
		PostConstruct({{printf "%q" .PostConstruct}}).
	{{- end}}
		Err())
{{- end}}
}
`),
)

// tempFile abstracts an os.File for testability.
type tempFile interface {
	Name() string
	Write([]byte) (int, error)
	Close() error
}

// File operation hooks, overridden in tests.
var (
	createTempFile = func(dir, pattern string) (tempFile, error) { return os.CreateTemp(dir, pattern) }
	chmodFile      = os.Chmod
	renameFile     = os.Rename
	removeFile     = os.Remove
)

// writeFileAtomic writes a file atomically.
//
// It writes to a temporary file in the same directory and then renames it
// over the target path, ensuring readers never observe partial writes.
func writeFileAtomic(targetPath string, data []byte, perm os.FileMode) (err error) {
	targetDir := filepath.Dir(targetPath)

	tmpFile, err := createTempFile(targetDir, filepath.Base(targetPath)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if err != nil {
			_ = removeFile(tmpPath)
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err = tmpFile.Close(); err != nil {
		return err
	}
	if err = chmodFile(tmpPath, perm); err != nil {
		return err
	}
	return renameFile(tmpPath, targetPath)
}

// must panics if err is non-nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
