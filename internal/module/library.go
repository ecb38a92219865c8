package module

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// LibraryVersion identifies the packaged library composed around user
// scripts. Workspaces written by one version may behave differently under
// another.
const LibraryVersion = "1"

//go:embed library
var library embed.FS

// includeOrder is the load order of the internal library. Later files may
// use anything defined by earlier ones.
var includeOrder = [...]string{
	"runtime.js",
	"math_extensions.js",
	"pitch.js",
	"buffer.js",
	"parameter.js",
	"gen.js",
	"filters.js",
}

// exampleDirs maps packaged example names to their library directory.
var exampleDirs = [...]struct{ name, dir string }{
	{"Noise", "0_noise"},
	{"Bitcrusher", "1_bitcrusher"},
	{"DJ Filter", "2_dj_filter"},
	{"Waveshaper", "3_waveshaper"},
}

var (
	internalIncludes string
	headers          [len(Phases)]string
	footers          [len(Phases)]string
	defaultContent   Content
	examples         []Example
)

func init() {
	var b strings.Builder
	for _, name := range includeOrder {
		b.WriteString(wrapInclude(name, mustRead("library/includes/"+name)))
	}
	internalIncludes = b.String()

	for _, phase := range Phases {
		headers[phase] = mustRead(fmt.Sprintf("library/headers/%s_header.js", phase))
		footers[phase] = mustRead(fmt.Sprintf("library/footers/%s_footer.js", phase))
	}

	defaultContent = loadContent("library/default", Content{})

	examples = make([]Example, 0, len(exampleDirs))
	for _, e := range exampleDirs {
		examples = append(examples, Example{
			Name:    e.name,
			Content: loadContent(path.Join("library/examples", e.dir), defaultContent),
		})
	}
}

func mustRead(name string) string {
	data, err := library.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("module: missing packaged library file %s: %v", name, err))
	}
	return string(data)
}

// loadContent reads the workspace files from a packaged directory, taking any
// file the directory does not provide from fallback.
func loadContent(dir string, fallback Content) Content {
	c := fallback
	for _, file := range Files {
		data, err := library.ReadFile(path.Join(dir, file))
		if err != nil {
			if _, ok := err.(*fs.PathError); ok {
				continue
			}
			panic(fmt.Sprintf("module: reading %s/%s: %v", dir, file, err))
		}
		c.SetField(file, string(data))
	}
	return c
}

func header(phase Phase) string { return headers[phase] }

func footer(phase Phase) string { return footers[phase] }

// Example is a packaged module shipped with the binary.
type Example struct {
	Name    string
	Content Content
}

// Default returns the module content new workspaces start from.
func Default() Content {
	return defaultContent
}

// Examples returns the packaged example modules in presentation order.
func Examples() []Example {
	out := make([]Example, len(examples))
	copy(out, examples)
	return out
}

// ExampleByName finds a packaged example, ignoring case. The name "default"
// selects Default.
func ExampleByName(name string) (Content, bool) {
	if strings.EqualFold(name, "default") {
		return defaultContent, true
	}
	for _, e := range examples {
		if strings.EqualFold(e.Name, name) {
			return e.Content, true
		}
	}
	return Content{}, false
}
