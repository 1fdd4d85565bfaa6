package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	infoTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	infoGroupStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	infoToolStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	infoRuleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type toolGroup struct {
	name  string
	tools []string
}

var toolGroups = []toolGroup{
	{
		name: "Discovery",
		tools: []string{
			"ping", "help", "list_templates", "get_template_details",
			"list_template_fragments", "get_fragment_details",
			"list_styles", "list_themes", "list_handlers",
		},
	},
	{
		name: "Session lifecycle",
		tools: []string{
			"create_document_session", "get_session_status",
			"list_active_sessions", "abort_document_session",
		},
	},
	{
		name: "Authoring",
		tools: []string{
			"validate_parameters", "set_global_parameters", "add_fragment",
			"add_image_fragment", "add_plot_fragment", "remove_fragment",
			"list_session_fragments",
		},
	},
	{
		name:  "Rendering",
		tools: []string{"get_document"},
	},
	{
		name:  "Plotting",
		tools: []string{"render_graph", "get_image", "list_images"},
	},
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the tool surface and client configuration snippets",
		RunE: func(cmd *cobra.Command, args []string) error {
			printInfo(cmd)
			return nil
		},
	}
}

func printInfo(cmd *cobra.Command) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, infoTitleStyle.Render("docsmith — multi-tenant document composition and rendering server"))
	fmt.Fprintln(out, infoRuleStyle.Render("A template/fragment/style catalogue, session-scoped document authoring,"))
	fmt.Fprintln(out, infoRuleStyle.Render("and HTML/PDF/Markdown rendering, exposed over MCP and plain HTTP."))
	fmt.Fprintln(out)

	total := 0
	for _, group := range toolGroups {
		fmt.Fprintln(out, infoGroupStyle.Render(fmt.Sprintf("%s (%d)", group.name, len(group.tools))))
		for _, tool := range group.tools {
			fmt.Fprintln(out, infoToolStyle.Render("  "+tool))
		}
		total += len(group.tools)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, infoRuleStyle.Render(fmt.Sprintf("%d tools across %d groups.", total, len(toolGroups))))
	fmt.Fprintln(out)

	fmt.Fprintln(out, infoGroupStyle.Render("stdio client config (Claude Desktop, Cursor, etc.)"))
	fmt.Fprintln(out, infoToolStyle.Render(`{
  "mcpServers": {
    "docsmith": {
      "command": "docsmith",
      "args": ["serve"]
    }
  }
}`))
	fmt.Fprintln(out)

	fmt.Fprintln(out, infoGroupStyle.Render("HTTP transport"))
	fmt.Fprintln(out, infoToolStyle.Render(`docsmith http --port 8420
# MCP Streamable HTTP: POST/GET http://localhost:8420/mcp
# REST surface:        http://localhost:8420/templates, /render/{id}, ...`))
}
