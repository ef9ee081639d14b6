// Package assistant registers devenv as an MCP server with AI coding
// assistants by editing their settings files.
//
// Each assistant stores servers under its own key and shape:
//
//	claude    ~/.claude.json, .mcp.json            "mcpServers"
//	codex     ~/.codex/config.toml                 "mcp_servers"
//	gemini    ~/.gemini/settings.json              "mcpServers"
//	opencode  ~/.config/opencode/opencode.json     "mcp"
//	vscode    <user>/Code/User/mcp.json, .vscode/  "servers"
//
// Files are decoded into generic maps so settings devenv does not manage
// survive a rewrite. Existing files are backed up before they change.
package assistant
