package calc

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/matzehuels/nodecalc/pkg/errors"
)

func TestTraceQueriedValue(t *testing.T) {
	c, g := newTestCalc(t)
	a, b := mustPlug(t, c, "A"), mustPlug(t, c, "B.ty")
	if err := a.SetAttr("tx", 5); err != nil {
		t.Fatal(err)
	}

	s, err := c.Trace(func(*TracerSession) error {
		x, err := a.Attr("tx").Get()
		if err != nil {
			return err
		}
		y, err := x.Add(2)
		if err != nil {
			return err
		}
		return b.Set(y)
	})
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	want := "val1 = cmds.getAttr('A.translateX')\n" +
		"cmds.setAttr('B.translateY', val1 + 2)\n"
	if got := s.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
	if got, _ := g.AttributeValue(b.Node(), "ty"); got != 7.0 {
		t.Errorf("B.translateY = %v, want 7", got)
	}
}

func TestTraceCompile(t *testing.T) {
	c, _ := newTestCalc(t)
	s, err := c.Trace(func(*TracerSession) error {
		sum, err := mustPlug(t, c, "B.ty").Add(2)
		if err != nil {
			return err
		}
		return mustPlug(t, c, "A").SetAttr("tx", sum)
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"var1 = cmds.createNode('plusMinusAverage', name='nc_ADD_list_plusMinusAverage')",
		"cmds.setAttr(var1 + '.operation', 1)",
		"cmds.connectAttr('B.translateY', var1 + '.input3D[0].input3Dx', force=True)",
		"cmds.setAttr(var1 + '.input3D[1].input3Dx', 2)",
		"cmds.connectAttr(var1 + '.output3Dx', 'A.translateX', force=True)",
	}
	if got := s.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Commands() =\n%v\nwant\n%v", got, want)
	}
	if n := len(s.Nodes()); n != 1 {
		t.Errorf("len(Nodes()) = %d, want 1", n)
	}
}

func TestTraceDeterministic(t *testing.T) {
	build := func() string {
		c, _ := newTestCalc(t)
		s, err := c.Trace(func(*TracerSession) error {
			a := mustPlug(t, c, "A.t")
			for range 2 {
				if _, err := a.Mul(mustPlug(t, c, "B.t")); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return s.String()
	}
	first, second := build(), build()
	if first != second {
		t.Errorf("traces differ:\n%s\n---\n%s", first, second)
	}
	// The host renames the second node; the trace keeps the requested name
	// and addresses it through its own variable.
	want := "var2 = cmds.createNode('multiplyDivide', name='nc_MUL_list_list_multiplyDivide')"
	if !bytes.Contains([]byte(first), []byte(want)) {
		t.Errorf("trace missing %q:\n%s", want, first)
	}
}

func TestTraceListValue(t *testing.T) {
	c, _ := newTestCalc(t)
	s, err := c.StartTrace()
	if err != nil {
		t.Fatal(err)
	}
	v, err := mustPlug(t, c, "A.translate").Get()
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()
	if v.Metadata != "val1" || v.Basetype() != BasetypeList {
		t.Errorf("Get() = %q %v, want val1 list", v.Metadata, v.Basetype())
	}
	if got, want := s.Commands(), []string{"val1 = list(cmds.getAttr('A.translate')[0])"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Commands() = %v, want %v", got, want)
	}
}

func TestTraceNested(t *testing.T) {
	c, _ := newTestCalc(t)
	_, err := c.Trace(func(*TracerSession) error {
		_, err := c.StartTrace()
		return err
	})
	wantCode(t, err, errors.ErrCodeNestedTrace)

	// The outer session stopped, so a new one may start.
	s, err := c.StartTrace()
	if err != nil {
		t.Fatalf("StartTrace() after nested error = %v", err)
	}
	s.Stop()
}

func TestTraceStopsOnPanic(t *testing.T) {
	c, _ := newTestCalc(t)
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_, _ = c.Trace(func(*TracerSession) error { panic("boom") })
	}()
	s, err := c.StartTrace()
	if err != nil {
		t.Fatalf("StartTrace() after panic error = %v", err)
	}
	s.Stop()
}

func TestTraceStop(t *testing.T) {
	c, _ := newTestCalc(t)
	var out bytes.Buffer
	s, err := c.StartTrace(WithPrint(), WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if !s.Recording() {
		t.Error("Recording() = false, want true")
	}
	if err := mustPlug(t, c, "A").SetAttr("tx", 1); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()
	if s.Recording() {
		t.Error("Recording() = true after Stop")
	}
	if got, want := out.String(), "[cmds.setAttr('A.translateX', 1)]\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	// Calls after Stop are not recorded.
	if err := mustPlug(t, c, "A").SetAttr("ty", 1); err != nil {
		t.Fatal(err)
	}
	if n := len(s.Commands()); n != 1 {
		t.Errorf("len(Commands()) = %d, want 1", n)
	}
}

func TestTracePrettyPrint(t *testing.T) {
	c, _ := newTestCalc(t)
	var out bytes.Buffer
	_, err := c.Trace(func(*TracerSession) error {
		if err := mustPlug(t, c, "A").SetAttr("tx", 1); err != nil {
			return err
		}
		return mustPlug(t, c, "A").SetAttr("ty", 2.5)
	}, WithPrettyPrint(), WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	want := "cmds.setAttr('A.translateX', 1)\ncmds.setAttr('A.translateY', 2.5)\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestTraceWithoutRecording(t *testing.T) {
	c, g := newTestCalc(t)
	var out bytes.Buffer
	s, err := c.Trace(func(*TracerSession) error {
		return mustPlug(t, c, "A").SetAttr("tx", 3)
	}, WithoutRecording(), WithPrettyPrint(), WithOutput(&out))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := g.AttributeValue(mustPlug(t, c, "A").Node(), "tx"); got != 3.0 {
		t.Errorf("A.translateX = %v, want 3", got)
	}
	if n := len(s.Commands()); n != 0 {
		t.Errorf("len(Commands()) = %d, want 0", n)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}

	var printed bytes.Buffer
	if err := s.Print(&printed); err != nil {
		t.Fatal(err)
	}
	if printed.Len() != 0 {
		t.Errorf("Print() wrote %q, want nothing", printed.String())
	}
}

func TestTraceZeroSession(t *testing.T) {
	var s TracerSession
	var out bytes.Buffer
	if err := s.Print(&out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("Print() wrote %q, want nothing", out.String())
	}
	s.Stop()
}

func TestTraceAddAttr(t *testing.T) {
	c, _ := newTestCalc(t)
	s, err := c.Trace(func(*TracerSession) error {
		_, err := mustPlug(t, c, "A").AddFloat("weight")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"cmds.addAttr('A', keyable=True, longName='weight', attributeType='float')"}
	if got := s.Commands(); !reflect.DeepEqual(got, want) {
		t.Errorf("Commands() = %v, want %v", got, want)
	}
}
