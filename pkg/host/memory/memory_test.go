package memory

import (
	stderrors "errors"
	"slices"
	"testing"

	"github.com/matzehuels/nodecalc/pkg/errors"
	"github.com/matzehuels/nodecalc/pkg/host"
)

func mustNode(t *testing.T, g *Graph, typ, name string) host.Identity {
	t.Helper()
	id, err := g.CreateNode(typ, name)
	if err != nil {
		t.Fatalf("CreateNode(%q, %q) error = %v", typ, name, err)
	}
	return id
}

func TestDefaultCatalogCoversOperatorNodes(t *testing.T) {
	c := DefaultCatalog()
	for _, typ := range []string{
		"transform", "locator", "joint", "plusMinusAverage", "multiplyDivide", "condition",
		"angleBetween", "blendColors", "choice", "clamp", "vectorProduct", "distanceBetween",
		"remapColor", "remapHsv", "remapValue", "reverse", "rgbToHsv", "setRange",
		"composeMatrix", "decomposeMatrix", "fourByFourMatrix", "holdMatrix", "inverseMatrix",
		"multMatrix", "passMatrix", "pointMatrixMult", "transposeMatrix", "wtAddMatrix",
		"pairBlend", "eulerToQuat", "quatToEuler", "quatAdd", "quatSub", "quatProd",
		"quatConjugate", "quatInvert", "quatNegate", "quatNormalize",
	} {
		if !c.Has(typ) {
			t.Errorf("DefaultCatalog() missing %q", typ)
		}
	}
}

func TestCreateNode(t *testing.T) {
	g := New()
	a := mustNode(t, g, "transform", "pCube1")
	b := mustNode(t, g, "transform", "pCube1")
	c := mustNode(t, g, "transform", "ctrl")
	d := mustNode(t, g, "transform", "ctrl")
	e := mustNode(t, g, "locator", "")

	tests := []struct {
		id   host.Identity
		want string
	}{
		{a, "pCube1"},
		{b, "pCube2"},
		{c, "ctrl"},
		{d, "ctrl1"},
		{e, "locator1"},
	}
	for _, tt := range tests {
		got, err := g.NodeName(tt.id)
		if err != nil || got != tt.want {
			t.Errorf("NodeName() = %q, %v, want %q", got, err, tt.want)
		}
	}

	if a == b {
		t.Error("identities are not unique")
	}
	if !g.NodeExists("pCube2") || !g.NodeExists(string(b)) {
		t.Error("NodeExists() = false for name or identity")
	}
	if g.DAG().NodeCount() != 5 {
		t.Errorf("DAG().NodeCount() = %d, want 5", g.DAG().NodeCount())
	}
}

func TestCreateNodeErrors(t *testing.T) {
	g := New()
	_, err := g.CreateNode("spaceship", "x")
	if !errors.Is(err, errors.ErrCodeInvalidNodeType) {
		t.Errorf("CreateNode(spaceship) error = %v, want %s", err, errors.ErrCodeInvalidNodeType)
	}
	if !stderrors.Is(err, ErrUnknownNodeType) {
		t.Errorf("CreateNode(spaceship) cause = %v, want %v", err, ErrUnknownNodeType)
	}
	_, err = g.CreateNode("transform", "bad name")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("CreateNode(bad name) error = %v, want %s", err, errors.ErrCodeInvalidInput)
	}
}

func TestRenameKeepsIdentity(t *testing.T) {
	g := New()
	a := mustNode(t, g, "transform", "A")
	mustNode(t, g, "transform", "B")

	got, err := g.Rename(a, "B")
	if err != nil {
		t.Fatal(err)
	}
	if got != "B1" {
		t.Errorf("Rename() = %q, want B1", got)
	}
	if id, ok := g.LookupNode("B1"); !ok || id != a {
		t.Errorf("LookupNode(B1) = %v, %v, want %v", id, ok, a)
	}
	if g.NodeExists("A") {
		t.Error("old name still resolves")
	}
}

func TestAttributePaths(t *testing.T) {
	g := New()
	tr := mustNode(t, g, "transform", "A")
	pma := mustNode(t, g, "plusMinusAverage", "pma")

	tests := []struct {
		name      string
		node      host.Identity
		attr      string
		canonical string
		children  []string
		parent    string
	}{
		{"long compound", tr, "translate", "translate", []string{"translateX", "translateY", "translateZ"}, ""},
		{"short compound", tr, "t", "translate", []string{"translateX", "translateY", "translateZ"}, ""},
		{"short child", tr, "tx", "translateX", nil, "translate"},
		{"long child", tr, "translateY", "translateY", nil, "translate"},
		{"suffix child", tr, "translate.z", "translateZ", nil, "translate"},
		{"leaf", tr, "v", "visibility", nil, ""},
		{"whole array", pma, "input3D", "input3D", nil, ""},
		{"array element", pma, "input3D[2]", "input3D[2]",
			[]string{"input3D[2].input3Dx", "input3D[2].input3Dy", "input3D[2].input3Dz"}, ""},
		{"element child", pma, "input3D[0].input3Dx", "input3D[0].input3Dx", nil, "input3D[0]"},
		{"element short child", pma, "i3[1].i3y", "input3D[1].input3Dy", nil, "input3D[1]"},
		{"leaf array element", pma, "input1D[4]", "input1D[4]", nil, ""},
		{"output child", pma, "output3Dy", "output3Dy", nil, "output3D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !g.AttributeExists(tt.node, tt.attr) {
				t.Fatalf("AttributeExists(%q) = false", tt.attr)
			}
			got, err := g.CanonicalAttribute(tt.node, tt.attr)
			if err != nil || got != tt.canonical {
				t.Errorf("CanonicalAttribute(%q) = %q, %v, want %q", tt.attr, got, err, tt.canonical)
			}
			children, _ := g.ChildAttributes(tt.node, tt.attr)
			if !slices.Equal(children, tt.children) {
				t.Errorf("ChildAttributes(%q) = %v, want %v", tt.attr, children, tt.children)
			}
			parent, ok := g.ParentAttribute(tt.node, tt.attr)
			if parent != tt.parent || ok != (tt.parent != "") {
				t.Errorf("ParentAttribute(%q) = %q, %v, want %q", tt.attr, parent, ok, tt.parent)
			}
		})
	}
}

func TestAttributePathErrors(t *testing.T) {
	g := New()
	tr := mustNode(t, g, "transform", "A")
	pma := mustNode(t, g, "plusMinusAverage", "pma")

	for _, tc := range []struct {
		node host.Identity
		attr string
	}{
		{tr, "nope"},
		{tr, "translate.w"},
		{tr, "tx[0]"},
		{pma, "input3D.input3Dx"},
		{pma, "input3D[x]"},
		{pma, "input3D[-1]"},
		{tr, ""},
	} {
		if g.AttributeExists(tc.node, tc.attr) {
			t.Errorf("AttributeExists(%q) = true, want false", tc.attr)
		}
		_, err := g.CanonicalAttribute(tc.node, tc.attr)
		if !errors.Is(err, errors.ErrCodeInvalidAttribute) {
			t.Errorf("CanonicalAttribute(%q) error = %v, want %s", tc.attr, err, errors.ErrCodeInvalidAttribute)
		}
	}
}

func TestSetAndReadValues(t *testing.T) {
	g := New()
	tr := mustNode(t, g, "transform", "A")
	md := mustNode(t, g, "multiplyDivide", "md")
	mm := mustNode(t, g, "multMatrix", "mm")

	if err := g.SetAttribute(tr, "tx", 2); err != nil {
		t.Fatal(err)
	}
	if err := g.SetAttribute(tr, "rotate", []float64{10, 20, 30}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		node host.Identity
		attr string
		want any
	}{
		{"int coerced to double", tr, "translateX", 2.0},
		{"compound", tr, "translate", []float64{2, 0, 0}},
		{"compound set", tr, "r", []float64{10, 20, 30}},
		{"compound default", tr, "scale", []float64{1, 1, 1}},
		{"bool default", tr, "visibility", true},
		{"enum default", md, "operation", 1},
		{"compound child default", md, "input2Y", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.AttributeValue(tt.node, tt.attr)
			if err != nil {
				t.Fatalf("AttributeValue(%q) error = %v", tt.attr, err)
			}
			switch want := tt.want.(type) {
			case []float64:
				if !slices.Equal(got.([]float64), want) {
					t.Errorf("AttributeValue(%q) = %v, want %v", tt.attr, got, want)
				}
			default:
				if got != want {
					t.Errorf("AttributeValue(%q) = %v (%T), want %v (%T)", tt.attr, got, got, want, want)
				}
			}
		})
	}

	m, _ := g.AttributeValue(mm, "matrixIn[3]")
	if !slices.Equal(m.([]float64), identityMatrix()) {
		t.Errorf("matrix default = %v, want identity", m)
	}

	if err := g.SetAttribute(tr, "translate", []float64{1, 2}); !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("SetAttribute(short list) error = %v, want %s", err, errors.ErrCodeDimensionMismatch)
	}
	if err := g.SetAttribute(mm, "matrixIn", identityMatrix()); !errors.Is(err, errors.ErrCodeInvalidAttribute) {
		t.Errorf("SetAttribute(whole array) error = %v, want %s", err, errors.ErrCodeInvalidAttribute)
	}
	if err := g.SetAttribute(tr, "tx", "high"); !errors.Is(err, errors.ErrCodeUnsupportedType) {
		t.Errorf("SetAttribute(string into double) error = %v, want %s", err, errors.ErrCodeUnsupportedType)
	}
}

func TestLockedAttribute(t *testing.T) {
	g := New()
	tr := mustNode(t, g, "transform", "A")
	if err := g.SetAttribute(tr, "translate", []float64{0, 0, 0}, host.Flag{Key: "lock", Value: true}); err != nil {
		t.Fatal(err)
	}
	err := g.SetAttribute(tr, "tx", 1.0)
	if !stderrors.Is(err, ErrLocked) {
		t.Errorf("SetAttribute(locked child) error = %v, want %v", err, ErrLocked)
	}
}

func TestAddAttribute(t *testing.T) {
	g := New()
	tr := mustNode(t, g, "transform", "ctrl")

	flags := host.Flags{
		{Key: "attributeType", Value: "double"},
		{Key: "minValue", Value: 0.0},
		{Key: "maxValue", Value: 10.0},
		{Key: "defaultValue", Value: 5.0},
		{Key: "keyable", Value: true},
	}
	if err := g.AddAttribute(tr, "blend", flags); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.AttributeValue(tr, "blend"); v != 5.0 {
		t.Errorf("default = %v, want 5", v)
	}
	_ = g.SetAttribute(tr, "blend", 42)
	if v, _ := g.AttributeValue(tr, "blend"); v != 10.0 {
		t.Errorf("clamped value = %v, want 10", v)
	}

	if err := g.AddAttribute(tr, "space", host.Flags{{Key: "attributeType", Value: "enum"}, {Key: "enumName", Value: "world:local"}}); err != nil {
		t.Fatal(err)
	}
	if err := g.SetAttribute(tr, "space", "local"); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.AttributeValue(tr, "space"); v != 1 {
		t.Errorf("enum value = %v, want 1", v)
	}

	if err := g.AddAttribute(tr, "aim", host.Flags{{Key: "attributeType", Value: "double3"}}); err != nil {
		t.Fatal(err)
	}
	if children, _ := g.ChildAttributes(tr, "aim"); !slices.Equal(children, []string{"aimX", "aimY", "aimZ"}) {
		t.Errorf("ChildAttributes(aim) = %v", children)
	}

	err := g.AddAttribute(tr, "blend", flags)
	if !stderrors.Is(err, ErrAttributeExists) {
		t.Errorf("AddAttribute(duplicate) error = %v, want %v", err, ErrAttributeExists)
	}
	if got := g.DynamicAttributes(tr); !slices.Equal(got, []string{"blend", "space", "aim"}) {
		t.Errorf("DynamicAttributes() = %v", got)
	}
}

func TestConnectAttribute(t *testing.T) {
	g := New()
	a := mustNode(t, g, "transform", "A")
	b := mustNode(t, g, "transform", "B")
	c := mustNode(t, g, "transform", "C")

	if err := g.ConnectAttribute(b, "ty", a, "tx"); err != nil {
		t.Fatal(err)
	}
	if got, _ := g.Input(a, "translateX"); got != "B.translateY" {
		t.Errorf("Input(A.tx) = %q, want B.translateY", got)
	}

	// Last writer wins.
	if err := g.ConnectAttribute(c, "tz", a, "tx"); err != nil {
		t.Fatal(err)
	}
	if got, _ := g.Input(a, "tx"); got != "C.translateZ" {
		t.Errorf("Input(A.tx) = %q, want C.translateZ", got)
	}

	// A parent connection replaces child inputs.
	if err := g.ConnectAttribute(b, "translate", a, "translate"); err != nil {
		t.Fatal(err)
	}
	want := []Connection{{Source: "B.translate", Destination: "A.translate"}}
	if got := g.Connections(); !slices.Equal(got, want) {
		t.Errorf("Connections() = %v, want %v", got, want)
	}
	if g.DAG().InDegree(string(a)) != 1 {
		t.Errorf("InDegree(A) = %d, want 1", g.DAG().InDegree(string(a)))
	}

	err := g.ConnectAttribute(b, "translate", a, "tx")
	if !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("ConnectAttribute(compound->leaf) error = %v, want %s", err, errors.ErrCodeDimensionMismatch)
	}
	err = g.ConnectAttribute(b, "worldMatrix[0]", a, "tx")
	if !errors.Is(err, errors.ErrCodeDimensionMismatch) {
		t.Errorf("ConnectAttribute(matrix->double) error = %v, want %s", err, errors.ErrCodeDimensionMismatch)
	}
	err = g.ConnectAttribute(host.Identity("ghost"), "tx", a, "tx")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("ConnectAttribute(ghost) error = %v, want %s", err, errors.ErrCodeNotFound)
	}
}

func TestConnectionCycle(t *testing.T) {
	g := New()
	a := mustNode(t, g, "transform", "A")
	b := mustNode(t, g, "transform", "B")
	_ = g.ConnectAttribute(a, "tx", b, "tx")
	_ = g.ConnectAttribute(b, "ty", a, "ty")

	cycle := g.DAG().FindCycle()
	if len(cycle) != 3 {
		t.Errorf("FindCycle() = %v, want a two-node cycle", cycle)
	}
}
