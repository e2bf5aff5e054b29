package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimulatedExecutors(t *testing.T) {
	tests := []struct {
		name string
		exec *SimulatedExecutor
		code string
		want string
	}{
		{"python double quotes", Python(), `print("hello")`, "hello"},
		{"python single quotes", Python(), `print('hi there')`, "hi there"},
		{"python spaces before literal", Python(), `print(   "spaced")`, "spaced"},
		{"python first call wins", Python(), `print("one"); print("two")`, "one"},
		{"python empty literal", Python(), `print("")`, ""},
		{"python mismatched quotes", Python(), `print("oops')`, "Python code executed successfully"},
		{"python no print", Python(), `x = 1 + 2`, "Python code executed successfully"},
		{"python variable argument", Python(), `print(x)`, "Python code executed successfully"},
		{"python keeps other quote", Python(), `print("it's")`, "it's"},
		{"js console.log", JavaScript(), `console.log('x')`, "x"},
		{"js template literal", JavaScript(), "console.log(`tpl`)", "tpl"},
		{"js no log", JavaScript(), `let a = 1`, "JavaScript code executed successfully"},
		{"js other method", JavaScript(), `console.warn('w')`, "JavaScript code executed successfully"},
		{"python rejects backtick", Python(), "print(`x`)", "Python code executed successfully"},
		{"python space before paren", Python(), `print ('x')`, "x"},
		{"python after assignment", Python(), `y=print("z")`, "z"},
		{"python verb inside identifier", Python(), `fingerprint('x')`, "Python code executed successfully"},
		{"python method named print", Python(), `doc.print('x')`, "Python code executed successfully"},
		{"python call after other code", Python(), "x = 1\nprint('later')", "later"},
		{"js verb inside member chain", JavaScript(), `my.console.log('x')`, "JavaScript code executed successfully"},
		{"js space before paren", JavaScript(), `console.log ("y")`, "y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.exec.Execute(tt.code))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{}},
		{"   ", Command{}},
		{"LS", Command{Verb: "ls", Args: []string{}}},
		{"echo   hello    world", Command{Verb: "echo", Args: []string{"hello", "world"}, Rest: "hello    world"}},
		{"\tPython print('x')", Command{Verb: "python", Args: []string{"print('x')"}, Rest: "print('x')"}},
		{"cat my   file.py  ", Command{Verb: "cat", Args: []string{"my", "file.py"}, Rest: "my   file.py"}},
		{"run\tapp.js", Command{Verb: "run", Args: []string{"app.js"}, Rest: "app.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}

	assert.Equal(t, "hello world", Parse("echo  hello   world").Text())
}
