// Command features reports how heavily this module's source leans on
// a handful of Go language features (allocations, goroutines, defers,
// closures, interfaces, type assertions) normalized per thousand lines.
// Adapted from a line-by-line AST walker into a golang.org/x/tools/go/packages
// load so it resolves the module's own import graph instead of a bare
// filepath.Walk over loose files.
package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"os"

	"golang.org/x/tools/go/packages"
)

type info_t struct {
	name string
	pos  string
}

var allocs []string
var gostmt []string
var deferstmt []string
var appendstmt []string
var closures []string
var interfaces []string
var typeasserts []string
var multiret []string
var maps []info_t
var slices []info_t
var channels []info_t
var lcount int

var verbose = os.Getenv("FEATURES_VERBOSE") != ""

func dotype(node ast.Expr, name string, pos string) {
	switch x := node.(type) {
	case *ast.MapType:
		maps = append(maps, info_t{name, pos})
	case *ast.ArrayType:
		slices = append(slices, info_t{name, pos})
	case *ast.ChanType:
		channels = append(channels, info_t{name, pos})
	}
}

func doname(names []*ast.Ident) string {
	if len(names) > 0 {
		return names[0].String()
	}
	return ""
}

func firstCallName(exprs []ast.Expr) string {
	if len(exprs) == 0 {
		return ""
	}
	call, ok := exprs[0].(*ast.CallExpr)
	if !ok {
		return ""
	}
	id, ok := call.Fun.(*ast.Ident)
	if !ok {
		return ""
	}
	return id.Name
}

func isAllocExpr(exprs []ast.Expr) bool {
	switch firstCallName(exprs) {
	case "make", "new":
		return true
	}
	if len(exprs) == 0 {
		return false
	}
	if u, ok := exprs[0].(*ast.UnaryExpr); ok && u.Op == token.AND {
		if _, ok := u.X.(*ast.CompositeLit); ok {
			return true
		}
	}
	return false
}

func donode(node ast.Node, fset *token.FileSet) bool {
	switch x := node.(type) {
	case *ast.Field:
		dotype(x.Type, doname(x.Names), fset.Position(node.Pos()).String())
	case *ast.GoStmt:
		gostmt = append(gostmt, fset.Position(node.Pos()).String())
	case *ast.DeferStmt:
		deferstmt = append(deferstmt, fset.Position(node.Pos()).String())
	case *ast.AssignStmt:
		pos := fset.Position(node.Pos()).String()
		if firstCallName(x.Rhs) == "append" {
			appendstmt = append(appendstmt, pos)
		}
		if isAllocExpr(x.Rhs) {
			allocs = append(allocs, pos)
		}
	case *ast.FuncLit:
		closures = append(closures, fset.Position(node.Pos()).String())
	case *ast.InterfaceType:
		interfaces = append(interfaces, fset.Position(node.Pos()).String())
	case *ast.TypeAssertExpr:
		typeasserts = append(typeasserts, fset.Position(node.Pos()).String())
	case *ast.FuncDecl:
		if x.Type.Results != nil && len(x.Type.Results.List) > 1 {
			multiret = append(multiret, fset.Position(node.Pos()).String())
		}
	}
	return true
}

func frac(x int) float64 {
	if lcount == 0 {
		return 0
	}
	return (float64(x) / float64(lcount)) * 1000
}

func report(name string, x []string) {
	fmt.Printf("%-20s %.2f /kloc\n", name, frac(len(x)))
	if verbose {
		for _, i := range x {
			fmt.Printf("\t%s\n", i)
		}
	}
}

func reporti(name string, x []info_t) {
	fmt.Printf("%-20s %.2f /kloc\n", name, frac(len(x)))
	if verbose {
		for _, i := range x {
			fmt.Printf("\t%s (%s)\n", i.name, i.pos)
		}
	}
}

func main() {
	pattern := "./..."
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	cfg := &packages.Config{Mode: packages.NeedSyntax | packages.NeedFiles}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "features: load %s: %v\n", pattern, err)
		os.Exit(1)
	}

	for _, pkg := range pkgs {
		for _, f := range pkg.Syntax {
			fset := pkg.Fset
			ast.Inspect(f, func(node ast.Node) bool { return donode(node, fset) })
			start := fset.Position(f.Package).Line
			end := fset.Position(f.End()).Line
			if end > start {
				lcount += end - start + 1
			}
		}
	}

	fmt.Printf("Line count %d\n", lcount)
	report("Go statements", gostmt)
	report("Defer statements", deferstmt)
	report("Append calls", appendstmt)
	report("Allocations", allocs)
	report("Closures", closures)
	report("Interfaces", interfaces)
	report("Type asserts", typeasserts)
	report("Multi-value returns", multiret)
	reporti("Maps", maps)
	reporti("Slices", slices)
	reporti("Channels", channels)
}
