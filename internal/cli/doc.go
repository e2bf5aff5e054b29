// Package cli implements labctl, the command-line client for a codelab
// server.
//
//	labctl files                      list workspace files
//	labctl files put index.html -f ./index.html
//	labctl preview open --viewport Mobile
//	labctl preview console <id> --clear
//	labctl terminal                   interactive session over WebSocket
//	labctl run run main.py            one command, then exit
package cli
