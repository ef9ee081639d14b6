// Package paths resolves the files and directories devenv reads and writes.
//
// devenv's own files follow the XDG Base Directory layout via
// github.com/adrg/xdg:
//
//	| Purpose  | Linux path                     |
//	|----------|--------------------------------|
//	| Config   | ~/.config/devenv/config.yaml   |
//	| Logs     | ~/.local/state/devenv/         |
//	| Backups  | ~/.local/share/devenv/backups/ |
//
// It also knows where each supported AI assistant keeps its MCP server
// configuration, for both user and project scope:
//
//	| Assistant | User file                      | Project file           |
//	|-----------|--------------------------------|------------------------|
//	| claude    | ~/.claude.json                 | .mcp.json              |
//	| codex     | ~/.codex/config.toml           | (none)                 |
//	| gemini    | ~/.gemini/settings.json        | .gemini/settings.json  |
//	| opencode  | ~/.config/opencode/opencode.json | opencode.json        |
//	| vscode    | <ConfigHome>/Code/User/mcp.json | .vscode/mcp.json      |
package paths
