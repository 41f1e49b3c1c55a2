package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodecalc/pkg/optable"
)

// opsCommand creates the ops command.
func (c *CLI) opsCommand() *cobra.Command {
	var extensions []string

	cmd := &cobra.Command{
		Use:   "ops [FILTER]",
		Short: "List the available operators",
		Long:  `List every operator with the node type it creates, its argument count and the bundle that registered it. FILTER keeps operators whose name contains it.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			t, err := loadTable(cfg, extensions)
			if err != nil {
				return err
			}
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			names := filterOps(t, filter)
			if len(names) == 0 {
				printWarning("No operators match %q", filter)
				return nil
			}
			fmt.Fprintln(stdout, opsTable(t, names))
			printDetail("%d of %d operators", len(names), t.Len())
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&extensions, "extension", "e", nil, "operator bundle to merge (repeatable)")
	return cmd
}

// filterOps returns the sorted operator names containing filter.
func filterOps(t *optable.Table, filter string) []string {
	var names []string
	for _, name := range t.Names() {
		if strings.Contains(name, filter) {
			names = append(names, name)
		}
	}
	return names
}

// opsTable renders names as a bordered table.
func opsTable(t *optable.Table, names []string) string {
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		e, err := t.Lookup(name)
		if err != nil {
			continue
		}
		args := strconv.Itoa(e.Arity())
		if e.IsArrayInput() {
			args = "list"
		}
		rows = append(rows, []string{name, e.NodeType, args, t.Origin(name), e.Doc})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Operator", "Node", "Args", "Bundle", "Description").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case row >= len(rows):
				return lipgloss.NewStyle()
			case col == 0:
				return StyleHighlight
			case col == 3 && rows[row][3] != optable.BaseBundleName:
				return StyleWarning
			case col >= 2:
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}
