/*
Package terminal implements the learner-facing command interpreter.

A Session accepts one line at a time. The line is split on whitespace; the
first token, lower-cased, selects a handler from a fixed table and the rest
are its arguments. Every accepted line is echoed into the scrollback as
"$ <line>", followed by the handler's result text, if any.

# Verbs

	help            usage text
	run [file]      run the active file, or the named one, by its language
	python <code>   simulated Python execution
	node <code>     simulated JavaScript execution
	ls [pattern]    list workspace files (doublestar glob filter)
	cat <file>      print a file byte-for-byte
	pwd             the fixed virtual working directory
	echo <text>     print text
	date            current local time
	clear           empty the scrollback

# Simulated execution

Executors never run code. After an artificial delay they echo the first
string literal passed to the language's print call, or report success. The
session is busy for the whole delay and rejects any submission meanwhile.
Interpreter failures are always plain result text; nothing is returned as an
error.
*/
package terminal
