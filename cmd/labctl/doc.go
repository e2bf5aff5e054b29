// Command labctl is the terminal client for a codelab server.
//
// Usage:
//
//	labctl [--server URL] <command>
//
// The server defaults to $CODELAB_SERVER, then http://localhost:8000.
// Run labctl --help for the command list.
package main
