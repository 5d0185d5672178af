package e2e_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mcncl/jsonform/internal/document"
	"github.com/mcncl/jsonform/internal/form"
	"github.com/mcncl/jsonform/internal/formatter"
	"github.com/mcncl/jsonform/internal/parser"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/session"
	"github.com/mcncl/jsonform/internal/textview"
)

// generateNestedJSON builds depth levels of objects, each with width scalar
// fields and one "child" member.
func generateNestedJSON(depth, width int) string {
	var b strings.Builder
	var write func(level int)
	write = func(level int) {
		b.WriteString("{")
		for i := 0; i < width; i++ {
			fmt.Fprintf(&b, `"field_%d": "value_%d_%d", `, i, level, i)
		}
		if level < depth {
			b.WriteString(`"child": `)
			write(level + 1)
		} else {
			b.WriteString(`"leaf": true`)
		}
		b.WriteString("}")
	}
	write(0)
	return b.String()
}

// generateWideJSON builds one object with fieldCount members of mixed kinds.
func generateWideJSON(fieldCount int) string {
	var b strings.Builder
	b.WriteString("{")
	for i := 0; i < fieldCount; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		switch i % 4 {
		case 0:
			fmt.Fprintf(&b, `"field_%d": "value_%d"`, i, i)
		case 1:
			fmt.Fprintf(&b, `"field_%d": %d`, i, i*10)
		case 2:
			fmt.Fprintf(&b, `"field_%d": %t`, i, i%3 == 0)
		default:
			fmt.Fprintf(&b, `"field_%d": [%d, %d]`, i, i, i+1)
		}
	}
	b.WriteString("}")
	return b.String()
}

func newSynchronizer(b *testing.B, text string) *form.Synchronizer {
	b.Helper()
	v, err := parser.ParseString(text)
	if err != nil {
		b.Fatal(err)
	}
	view := textview.New(formatter.NewFormatter(), parser.Options{})
	return form.New(document.New(v), view, nil)
}

func BenchmarkParseAndBuild(b *testing.B) {
	inputs := map[string]string{
		"Nested_10x5": generateNestedJSON(10, 5),
		"Wide_1000":   generateWideJSON(1000),
	}
	for name, text := range inputs {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				v, err := parser.ParseString(text)
				if err != nil {
					b.Fatal(err)
				}
				_ = form.Build(v, path.Path{})
			}
		})
	}
}

func BenchmarkEditScalar(b *testing.B) {
	fs := newSynchronizer(b, generateWideJSON(500))
	p := path.Path{}.Key("field_1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := fs.Edit(p, fmt.Sprint(i)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEditDeepField(b *testing.B) {
	const depth = 20
	fs := newSynchronizer(b, generateNestedJSON(depth, 3))
	p := path.Path{}
	for i := 0; i < depth; i++ {
		p = p.Key("child")
	}
	p = p.Key("field_0")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := fs.Edit(p, "changed"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAddRemoveItem(b *testing.B) {
	fs := newSynchronizer(b, `{"items": [{"name": "a", "tags": ["x", "y"], "count": 1}]}`)
	p := path.Path{}.Key("items")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := fs.AddItem(p); err != nil {
			b.Fatal(err)
		}
		if err := fs.RemoveItem(p, 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSessionEdit(b *testing.B) {
	mgr := session.NewManager(nil, session.ManagerConfig{}, nil)
	defer mgr.Close()

	ctx := context.Background()
	sess, err := mgr.Create(ctx, generateWideJSON(200))
	if err != nil {
		b.Fatal(err)
	}
	p := path.Path{}.Key("field_0")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := sess.Edit(ctx, p, "v"); err != nil {
			b.Fatal(err)
		}
	}
}
