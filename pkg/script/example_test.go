package script_test

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/host/memory"
	"github.com/matzehuels/nodecalc/pkg/script"
)

func newScene() (*calc.Calculator, *script.Interpreter) {
	g := memory.New()
	_, _ = g.CreateNode("transform", "A")
	_, _ = g.CreateNode("transform", "B")
	quiet := log.New(io.Discard)
	c := calc.New(g, calc.WithLogger(quiet))
	return c, script.New(c, script.WithLogger(quiet))
}

func Example() {
	c, in := newScene()
	src := []byte(`
offset = B.ty + 2
A.tx = offset
`)
	session, err := c.Trace(func(*calc.TracerSession) error {
		return in.Run(context.Background(), "rig.nc", src)
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Print(session)
	// Output:
	// var1 = cmds.createNode('plusMinusAverage', name='nc_ADD_list_plusMinusAverage')
	// cmds.setAttr(var1 + '.operation', 1)
	// cmds.connectAttr('B.translateY', var1 + '.input3D[0].input3Dx', force=True)
	// cmds.setAttr(var1 + '.input3D[1].input3Dx', 2)
	// cmds.connectAttr(var1 + '.output3Dx', 'A.translateX', force=True)
}

func ExampleInterpreter_Exec() {
	_, in := newScene()
	v, _ := in.Exec("(1 + 2) * 4")
	fmt.Println(script.Format(v))
	// Output: (1 + 2) * 4 = 12
}
