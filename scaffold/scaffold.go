// Package scaffold generates starter source files for models,
// migrations and seeders, mirroring the layout the CLI expects.
package scaffold

import (
	"strings"
	"time"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/quarrydb/quarry"
)

const modulePath = "github.com/quarrydb/quarry"

// Clock returns the timestamp used in migration names. Overridable in
// tests.
var Clock = time.Now

// Model renders a model definition file for the given entity name
// ("User", "BlogPost").
func Model(pkg, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	name = inflect.Camelize(name)
	f := jen.NewFile(pkg)
	f.Commentf("%s is the %s entity definition.", name, inflect.Underscore(name))
	f.Var().Id(name).Op("=").Op("&").Qual(modulePath+"/model", "Definition").Values(jen.Dict{
		jen.Id("Name"):       jen.Lit(name),
		jen.Id("Fillable"):   jen.Index().String().Values(),
		jen.Id("Timestamps"): jen.True(),
	})
	return render(f)
}

// Migration renders a Go migration file and returns its conventional
// file name alongside the source.
func Migration(pkg, label string) (filename string, src []byte, err error) {
	if err := validName(label); err != nil {
		return "", nil, err
	}
	name := Clock().UTC().Format("20060102150405") + "_" + inflect.Underscore(label)
	table := inflect.Pluralize(strings.TrimPrefix(inflect.Underscore(label), "create_"))

	f := jen.NewFile(pkg)
	f.Var().Id(inflect.Camelize(label)).Op("=").Op("&").Qual(modulePath+"/migrate", "Migration").Values(jen.Dict{
		jen.Id("Name"): jen.Lit(name),
		jen.Id("Up"): jen.Func().
			Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("s").Op("*").Qual(modulePath+"/schema", "Schema")).
			Error().
			Block(jen.Return(jen.Id("s").Dot("Create").Call(
				jen.Id("ctx"),
				jen.Lit(table),
				jen.Func().Params(jen.Id("b").Op("*").Qual(modulePath+"/schema", "Blueprint")).Block(
					jen.Id("b").Dot("Increments").Call(jen.Lit("id")),
					jen.Id("b").Dot("Timestamps").Call(),
				),
			))),
		jen.Id("Down"): jen.Func().
			Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("s").Op("*").Qual(modulePath+"/schema", "Schema")).
			Error().
			Block(jen.Return(jen.Id("s").Dot("Drop").Call(jen.Id("ctx"), jen.Lit(table)))),
	})
	src, err = render(f)
	if err != nil {
		return "", nil, err
	}
	return name + ".go", src, nil
}

// Seeder renders a seeder file for the given name.
func Seeder(pkg, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	name = inflect.Camelize(name)
	f := jen.NewFile(pkg)
	f.Var().Id(name).Op("=").Qual(modulePath+"/seed", "Func").Call(
		jen.Lit(inflect.Underscore(name)),
		jen.Func().
			Params(jen.Id("ctx").Qual("context", "Context"), jen.Id("a").Qual(modulePath+"/adapter", "Adapter")).
			Error().
			Block(jen.Return(jen.Nil())),
	)
	return render(f)
}

func render(f *jen.File) ([]byte, error) {
	var sb strings.Builder
	if err := f.Render(&sb); err != nil {
		return nil, quarry.NewConfigError("scaffold: %v", err)
	}
	return []byte(sb.String()), nil
}

func validName(name string) error {
	if name == "" {
		return quarry.NewConfigError("scaffold: empty name")
	}
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			continue
		}
		return quarry.NewConfigError("scaffold: invalid name %q", name)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return quarry.NewConfigError("scaffold: name %q starts with a digit", name)
	}
	return nil
}
