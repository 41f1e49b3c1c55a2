package calc

import (
	"reflect"
	"testing"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

// describeItems renders unravelled items as nested strings for comparison.
func describeItems(c *Calculator, items []Item) [][]string {
	out := make([][]string, len(items))
	for i, it := range items {
		for _, p := range it.Flatten() {
			out[i] = append(out[i], c.describe(p))
		}
	}
	return out
}

func TestUnravel(t *testing.T) {
	c, _ := newTestCalc(t)
	a := mustPlug(t, c, "A")
	b := mustPlug(t, c, "B")

	tests := []struct {
		name string
		in   any
		want [][]string
	}{
		{"compound splits", a.Attr("translate"), [][]string{{"A.translateX"}, {"A.translateY"}, {"A.translateZ"}}},
		{"short name canonicalized", a.Attr("tx"), [][]string{{"A.translateX"}}},
		{"suffix child", a.Attr("translate").Attr("y"), [][]string{{"A.translateY"}}},
		{"shear keeps custom suffixes", a.Attr("shear"), [][]string{{"A.shearXY"}, {"A.shearXZ"}, {"A.shearYZ"}}},
		{"leaf", a.Attr("visibility"), [][]string{{"A.visibility"}}},
		{"bare node", a, [][]string{{"A"}}},
		{"node string", "B.ty", [][]string{{"B.translateY"}}},
		{"int literal", 2, [][]string{{"2"}}},
		{"list literal", []float64{1, 2}, [][]string{{"1.0"}, {"2.0"}}},
		{"unknown attribute kept", a.Attr("bogus"), [][]string{{"A.bogus"}}},
		{"nested list groups", []any{a.Attr("translate"), b.Attr("tx"), 3}, [][]string{
			{"A.translateX", "A.translateY", "A.translateZ"},
			{"B.translateX"},
			{"3"},
		}},
		{"multi attribute plug", mustPlug(t, c, "A", WithAttrs("tx", "ry")), [][]string{{"A.translateX"}, {"A.rotateY"}}},
		{"plug slice", []*Plug{a.Attr("tx"), b.Attr("tx")}, [][]string{{"A.translateX"}, {"B.translateX"}}},
		{"plug string slice", []string{"A.tx", "B.translate"}, [][]string{
			{"A.translateX"},
			{"B.translateX", "B.translateY", "B.translateZ"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := c.Unravel(tt.in)
			if err != nil {
				t.Fatalf("Unravel() error = %v", err)
			}
			if got := describeItems(c, items); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Unravel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnravelDisabled(t *testing.T) {
	c, _ := newTestCalc(t)

	plug := mustPlug(t, c, "A.translate", WithAutoUnravel(false))
	items, err := c.Unravel(plug)
	if err != nil {
		t.Fatal(err)
	}
	if got := describeItems(c, items); !reflect.DeepEqual(got, [][]string{{"A.translate"}}) {
		t.Errorf("per-plug Unravel() = %v, want [[A.translate]]", got)
	}

	c.SetGlobalAutoUnravel(false)
	items, err = c.Unravel(mustPlug(t, c, "A.t"))
	if err != nil {
		t.Fatal(err)
	}
	if got := describeItems(c, items); !reflect.DeepEqual(got, [][]string{{"A.translate"}}) {
		t.Errorf("global Unravel() = %v, want [[A.translate]]", got)
	}
}

func TestUnravelArrayElement(t *testing.T) {
	c, _ := newTestCalc(t)
	avg, err := c.CreateNode("plusMinusAverage", "avg")
	if err != nil {
		t.Fatal(err)
	}

	items, err := c.Unravel(avg.Attr("input3D[1]"))
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"avg.input3D[1].input3Dx"}, {"avg.input3D[1].input3Dy"}, {"avg.input3D[1].input3Dz"}}
	if got := describeItems(c, items); !reflect.DeepEqual(got, want) {
		t.Errorf("Unravel() = %v, want %v", got, want)
	}

	items, err = c.Unravel(avg.Attr("input3D"))
	if err != nil {
		t.Fatal(err)
	}
	if got := describeItems(c, items); !reflect.DeepEqual(got, [][]string{{"avg.input3D"}}) {
		t.Errorf("whole array Unravel() = %v, want [[avg.input3D]]", got)
	}
}

func TestUnravelErrors(t *testing.T) {
	c, _ := newTestCalc(t)

	_, err := c.Unravel(struct{}{})
	wantCode(t, err, errors.ErrCodeUnsupportedType)

	_, err = c.Unravel("Nowhere.tx")
	wantCode(t, err, errors.ErrCodeUnsupportedSourceType)
}

func TestItem(t *testing.T) {
	single := itemOf([]Primitive{{Attr: "a"}})
	if single.IsGroup() || single.Width() != 1 {
		t.Errorf("single item IsGroup() = %v Width() = %d, want false 1", single.IsGroup(), single.Width())
	}
	group := itemOf([]Primitive{{Attr: "a"}, {Attr: "b"}})
	if !group.IsGroup() || group.Width() != 2 {
		t.Errorf("group IsGroup() = %v Width() = %d, want true 2", group.IsGroup(), group.Width())
	}
	if got := len(flatten([]Item{single, group})); got != 3 {
		t.Errorf("len(flatten()) = %d, want 3", got)
	}
}
