package parser

import (
	"path"
	"strings"
	"unicode"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

var pythonBuiltins = map[string]bool{
	"abs": true, "aiter": true, "all": true, "anext": true, "any": true,
	"ascii": true, "bin": true, "bool": true, "breakpoint": true, "bytearray": true,
	"bytes": true, "callable": true, "chr": true, "classmethod": true, "compile": true,
	"complex": true, "delattr": true, "dict": true, "dir": true, "divmod": true,
	"enumerate": true, "eval": true, "exec": true, "filter": true, "float": true,
	"format": true, "frozenset": true, "getattr": true, "globals": true, "hasattr": true,
	"hash": true, "help": true, "hex": true, "id": true, "input": true,
	"int": true, "isinstance": true, "issubclass": true, "iter": true, "len": true,
	"list": true, "locals": true, "map": true, "max": true, "memoryview": true,
	"min": true, "next": true, "object": true, "oct": true, "open": true,
	"ord": true, "pow": true, "print": true, "property": true, "range": true,
	"repr": true, "reversed": true, "round": true, "set": true, "setattr": true,
	"slice": true, "sorted": true, "staticmethod": true, "str": true, "sum": true,
	"super": true, "tuple": true, "type": true, "vars": true, "zip": true,
	"__import__": true, "__name__": true, "__file__": true, "__doc__": true,
	"__spec__": true, "__package__": true, "__builtins__": true, "__debug__": true,
	"NotImplemented": true, "Ellipsis": true, "Exception": true, "BaseException": true,
	"ValueError": true, "TypeError": true, "KeyError": true, "IndexError": true,
	"AttributeError": true, "RuntimeError": true, "StopIteration": true,
	"NotImplementedError": true, "OSError": true, "ImportError": true,
	"LookupError": true, "ArithmeticError": true, "ZeroDivisionError": true,
	"AssertionError": true, "FileNotFoundError": true, "PermissionError": true,
	"KeyboardInterrupt": true, "SystemExit": true, "Warning": true,
	"DeprecationWarning": true, "UserWarning": true,
}

func IsKeyword(name string) bool {
	return pythonKeywords[name]
}

func IsBuiltin(name string) bool {
	return pythonBuiltins[name]
}

// IsIdentifier reports whether name is a syntactically valid Python name.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r)) {
			continue
		}
		return false
	}
	return true
}

// CanonicalPath converts separators to '/' and strips a leading "./".
func CanonicalPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

// ModulePath maps a workspace-relative .py path to its dotted module path
// under the longest matching source root. pkg reports an __init__.py file.
func ModulePath(p string, sourceRoots []string) (module string, pkg bool) {
	p = CanonicalPath(p)
	if !strings.HasSuffix(p, ".py") {
		return "", false
	}

	best := ""
	for _, root := range sourceRoots {
		if root == "" || !strings.HasPrefix(p, root+"/") {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	if best != "" {
		p = strings.TrimPrefix(p, best+"/")
	}

	p = strings.TrimSuffix(p, ".py")
	if path.Base(p) == "__init__" {
		pkg = true
		p = path.Dir(p)
		if p == "." {
			return "", true
		}
	}
	return strings.ReplaceAll(p, "/", "."), pkg
}
