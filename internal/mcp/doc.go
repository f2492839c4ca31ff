// Package mcp implements a Model Context Protocol (MCP) server for yarvis using the mcp-go library.
//
// The server gives AI assistants read-only access to the project records:
//
//   - list_projects: records of the projects or archives collection
//   - get_project: one record by name, rendered as markdown
//   - project_stats: project, archive and repository counts
//   - list_boilerplates: the templates available to new projects
//
// Nothing here mutates records, directories or remotes. Passwords never leave
// the process: records are encoded with their JSON tags, which omit them.
//
// # Usage
//
// The server is started as a subprocess by MCP-capable assistants:
//
//	yarvis mcp
//
// It reads JSON-RPC requests from stdin and writes responses to stdout
// until it receives EOF or is terminated.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
